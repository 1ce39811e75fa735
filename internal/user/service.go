package user

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The directory speaks protobuf well-known types so no generated stubs are needed:
// the request is a StringValue holding the user id and the reply a Struct
// with id, email and name.
const (
	ServiceName   = "users.UserDirectory"
	getUserMethod = "/" + ServiceName + "/GetUser"
)

type DirectoryServer interface {
	GetUser(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
}

func getUserHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DirectoryServer).GetUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getUserMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DirectoryServer).GetUser(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var DirectoryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetUser", Handler: getUserHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "users.proto",
}

func RegisterDirectoryServer(s grpc.ServiceRegistrar, srv DirectoryServer) {
	s.RegisterService(&DirectoryServiceDesc, srv)
}

type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) GetUser(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	u, err := s.repo.GetByID(ctx, in.GetValue())
	if errors.Is(err, ErrNotFound) {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	if err != nil {
		s.log.Error("get user", zap.String("user_id", in.GetValue()), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "get error: %v", err)
	}
	return structpb.NewStruct(map[string]interface{}{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
	})
}

// Client resolves users through the directory service.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client { return &Client{conn: conn} }

func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, getUserMethod, wrapperspb.String(id), out); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	f := out.GetFields()
	return &User{
		ID:    f["id"].GetStringValue(),
		Email: f["email"].GetStringValue(),
		Name:  f["name"].GetStringValue(),
	}, nil
}

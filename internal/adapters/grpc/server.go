package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/shopfront/storefront/internal/application"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

const serviceName = "storefront.auth.v1.AuthInternalService"

// AuthInternalService is the internal contract other services use to check storefront
// tokens. Messages are structpb.Struct so no generated code is needed.
type AuthInternalService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUserIdentity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPublicKeys(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// Authenticator is the slice of the application service the gRPC server needs.
type Authenticator interface {
	ValidateToken(ctx context.Context, token string) (ports.AuthClaims, error)
	GetUserIdentity(ctx context.Context, userID uuid.UUID) (application.UserIdentity, error)
}

// KeySource publishes token verification keys.
type KeySource interface {
	PublicJWKs() ([]map[string]any, error)
}

type AuthInternalServer struct {
	deps AuthInternalServiceDeps
}

// AuthInternalServiceDeps bundles the server's collaborators.
type AuthInternalServiceDeps struct {
	Auth Authenticator
	Keys KeySource
}

func NewAuthInternalServer(deps AuthInternalServiceDeps) *AuthInternalServer {
	return &AuthInternalServer{deps: deps}
}

func Register(server grpc.ServiceRegistrar, svc AuthInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AuthInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    structHandler("ValidateToken", svc.ValidateToken),
			},
			{
				MethodName: "GetUserIdentity",
				Handler:    structHandler("GetUserIdentity", svc.GetUserIdentity),
			},
			{
				MethodName: "GetPublicKeys",
				Handler:    getPublicKeysHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "storefront/auth/v1/auth_internal.proto",
	}, svc)
}

func (s *AuthInternalServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := req.GetFields()["token"].GetStringValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	claims, err := s.deps.Auth.ValidateToken(ctx, token)
	if err != nil {
		return nil, toStatus(err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":      true,
		"user_id":    claims.UserID.String(),
		"session_id": claims.SessionID.String(),
		"email":      claims.Email,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *AuthInternalServer) GetUserIdentity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := uuid.Parse(req.GetFields()["user_id"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "user_id must be a uuid")
	}
	identity, err := s.deps.Auth.GetUserIdentity(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"user_id": identity.UserID.String(),
		"name":    identity.Name,
		"email":   identity.Email,
		"role":    identity.Role,
		"status":  identity.Status,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *AuthInternalServer) GetPublicKeys(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.deps.Keys == nil {
		return nil, status.Error(codes.Unimplemented, "key publication disabled")
	}
	keys, err := s.deps.Keys.PublicJWKs()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get keys: %v", err)
	}
	// structpb only accepts []any for lists.
	list := make([]any, 0, len(keys))
	for _, k := range keys {
		list = append(list, k)
	}
	resp, err := structpb.NewStruct(map[string]any{"keys": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrSessionRevoked),
		errors.Is(err, domain.ErrSessionExpired):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

type structMethod func(context.Context, *structpb.Struct) (*structpb.Struct, error)

func structHandler(method string, call structMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func getPublicKeysHandler(svc AuthInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &emptypb.Empty{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetPublicKeys(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/GetPublicKeys",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*emptypb.Empty)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetPublicKeys(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

package grpc_control

import (
	"errors"
	"fmt"
	"net"

	"market-streamer/src/logger"

	"google.golang.org/grpc"
)

// Server hosts ControlService on its own listener.
type Server struct {
	Logger *logger.Logger

	grpcServer *grpc.Server
	listener   net.Listener
}

func NewServer(svc ControlServer, log *logger.Logger, opts ...grpc.ServerOption) *Server {
	gs := grpc.NewServer(opts...)
	RegisterControlServer(gs, svc)
	return &Server{Logger: log, grpcServer: gs}
}

// Listen binds addr synchronously; a bind failure is returned to the caller.
func (s *Server) Listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on %s: %w", addr, err)
	}
	s.Serve(lis)
	return nil
}

// Serve runs on an already-bound listener in the background.
func (s *Server) Serve(lis net.Listener) {
	s.listener = lis
	go func() {
		if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.Logger.Error("gRPC control server stopped: %v", err)
		}
	}()
	s.Logger.Info("Starting gRPC Control Server on %s", lis.Addr())
}

func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

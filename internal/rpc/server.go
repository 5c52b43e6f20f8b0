package rpc

import (
	"context"
	"fmt"
	"net"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"github.com/tliron/commonlog"
	"google.golang.org/grpc"

	"github.com/funvibe/walc/internal/backend"
	"github.com/funvibe/walc/internal/codec"
	"github.com/funvibe/walc/internal/logging"
	"github.com/funvibe/walc/internal/vm"
)

// Server implements walc.v1.Engine. Every call gets its own environment
// and machine, so one Server handles concurrent calls.
type Server struct {
	treeWalk *backend.TreeWalkBackend
	vm       *backend.VMBackend
	log      commonlog.Logger
}

// NewServer creates a server that runs with the given engine limits.
func NewServer(limits backend.Limits) *Server {
	return &Server{
		treeWalk: backend.NewTreeWalk(limits.MaxDepth),
		vm:       backend.NewVM(limits),
		log:      logging.Get("rpc"),
	}
}

type unaryFunc func(ctx context.Context, in *dynamic.Message, out *dynamic.Message)

// Register adds the engine service to gs.
func (s *Server) Register(gs *grpc.Server) error {
	sd, err := Service()
	if err != nil {
		return err
	}
	handlers := map[string]unaryFunc{
		"Evaluate":  s.evaluate,
		"Generate":  s.generate,
		"Interpret": s.interpret,
	}

	svc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Metadata:    sd.GetFile().GetName(),
	}
	for _, md := range sd.GetMethods() {
		fn, ok := handlers[md.GetName()]
		if !ok {
			return fmt.Errorf("no handler for %s", md.GetFullyQualifiedName())
		}
		md := md
		svc.Methods = append(svc.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				return srv.(*Server).handleUnary(ctx, md, fn, dec, interceptor)
			},
		})
	}
	gs.RegisterService(svc, s)
	return nil
}

func (s *Server) handleUnary(ctx context.Context, md *desc.MethodDescriptor, fn unaryFunc, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := dynamic.NewMessage(md.GetInputType())
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req interface{}) (interface{}, error) {
		out := dynamic.NewMessage(md.GetOutputType())
		fn(ctx, req.(*dynamic.Message), out)
		return out, nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: fullMethod(md.GetName())}
	return interceptor(ctx, in, info, call)
}

func (s *Server) evaluate(ctx context.Context, in, out *dynamic.Message) {
	tree, err := codec.Decode(codec.JSON, []byte(in.GetFieldByName("tree").(string)))
	if err != nil {
		s.fail(out, "Evaluate", err)
		return
	}
	v, err := s.treeWalk.Run(ctx, tree)
	if err != nil {
		s.fail(out, "Evaluate", err)
		return
	}
	out.SetFieldByName("value", v)
}

func (s *Server) generate(ctx context.Context, in, out *dynamic.Message) {
	tree, err := codec.Decode(codec.JSON, []byte(in.GetFieldByName("tree").(string)))
	if err != nil {
		s.fail(out, "Generate", err)
		return
	}
	program, err := vm.CompileDepth(tree, s.vm.MaxDepth)
	if err != nil {
		s.fail(out, "Generate", err)
		return
	}
	out.SetFieldByName("code", program.Code)
	if len(program.Names) > 0 {
		out.SetFieldByName("names", program.Names)
	}
}

func (s *Server) interpret(ctx context.Context, in, out *dynamic.Message) {
	code, _ := in.GetFieldByName("code").([]byte)
	v, err := s.vm.RunCode(ctx, code, stringList(in.GetFieldByName("names")))
	if err != nil {
		s.fail(out, "Interpret", err)
		return
	}
	out.SetFieldByName("value", v)
}

// fail reports err in the reply instead of as an RPC status.
func (s *Server) fail(out *dynamic.Message, method string, err error) {
	s.log.Debugf("%s: %s", method, err)
	out.SetFieldByName("error", err.Error())
}

// Serve registers the service on a new grpc.Server and serves lis until ctx
// is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	gs := grpc.NewServer()
	if err := s.Register(gs); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()

	s.log.Infof("serving %s on %s", ServiceName, lis.Addr())
	if err := gs.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// ListenAndServe listens on the TCP address addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func stringList(v interface{}) []string {
	items, _ := v.([]interface{})
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i], _ = item.(string)
	}
	return out
}

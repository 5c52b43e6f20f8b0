// Package rpc exposes the evaluator, generator and virtual machine as the
// gRPC service walc.v1.Engine. Messages are built at run time from the
// embedded .proto, so no generated code is involved.
package rpc

import (
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/types/descriptorpb"
)

// ServiceName is the fully qualified name of the engine service.
const ServiceName = "walc.v1.Engine"

const protoFile = "walc/v1/engine.proto"

const engineProto = `syntax = "proto3";

package walc.v1;

// A tree in the JSON tagged-object encoding.
message TreeRequest {
  string tree = 1;
}

message CodeRequest {
  bytes code = 1;
  repeated string names = 2;
}

message ValueReply {
  double value = 1;
  string error = 2;
}

message CodeReply {
  bytes code = 1;
  repeated string names = 2;
  string error = 3;
}

service Engine {
  rpc Evaluate(TreeRequest) returns (ValueReply);
  rpc Generate(TreeRequest) returns (CodeReply);
  rpc Interpret(CodeRequest) returns (ValueReply);
}
`

var (
	serviceOnce sync.Once
	serviceDesc *desc.ServiceDescriptor
	serviceErr  error
)

// fieldTypes is the wire type every message field must carry.
var fieldTypes = map[string]descriptorpb.FieldDescriptorProto_Type{
	"tree":  descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"code":  descriptorpb.FieldDescriptorProto_TYPE_BYTES,
	"names": descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"value": descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	"error": descriptorpb.FieldDescriptorProto_TYPE_STRING,
}

// Service parses the embedded definition once and returns the engine
// service descriptor.
func Service() (*desc.ServiceDescriptor, error) {
	serviceOnce.Do(func() {
		serviceDesc, serviceErr = parseService()
	})
	return serviceDesc, serviceErr
}

func parseService() (*desc.ServiceDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{protoFile: engineProto}),
	}
	fds, err := parser.ParseFiles(protoFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proto: %w", err)
	}
	sd := fds[0].FindService(ServiceName)
	if sd == nil {
		return nil, fmt.Errorf("service %s not found in %s", ServiceName, protoFile)
	}
	for _, md := range sd.GetMethods() {
		for _, msg := range []*desc.MessageDescriptor{md.GetInputType(), md.GetOutputType()} {
			for _, fd := range msg.GetFields() {
				if want, ok := fieldTypes[fd.GetName()]; !ok || fd.GetType() != want {
					return nil, fmt.Errorf("%s.%s: unexpected field type %s", msg.GetName(), fd.GetName(), fd.GetType())
				}
			}
		}
	}
	return sd, nil
}

func method(name string) (*desc.MethodDescriptor, error) {
	sd, err := Service()
	if err != nil {
		return nil, err
	}
	md := sd.FindMethodByName(name)
	if md == nil {
		return nil, fmt.Errorf("method %s not found in %s", name, ServiceName)
	}
	return md, nil
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

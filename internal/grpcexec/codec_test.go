package grpcexec

import (
	"testing"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/structpb"

	language "github.com/hanpama/cachegraph/internal/language"
	"github.com/hanpama/cachegraph/internal/operation"
)

func protoString(s string) *string { return &s }
func protoInt32(i int32) *int32    { return &i }

// buildExecuteMethod assembles a method descriptor shaped the way grpcexec
// expects: Execute(ExecuteRequest{operation_name, variables}) returns
// ExecuteResponse{data, errors}, with variables and data referencing
// google.protobuf.Struct and errors a repeated GraphQLErrorOut{message} —
// mirroring the descriptorpb/protodesc idiom the
// teacher's grpcrt tests use to build method descriptors at runtime.
func buildExecuteMethod(t *testing.T) protoreflect.MethodDescriptor {
	t.Helper()

	file := &descriptorpb.FileDescriptorProto{
		Name:       protoString("execute.proto"),
		Package:    protoString("cachegraphtest"),
		Dependency: []string{"google/protobuf/struct.proto"},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: protoString("ExecuteRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{
						Name:     protoString("operation_name"),
						JsonName: protoString("operationName"),
						Number:   protoInt32(1),
						Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
						Type:     descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
					},
					{
						Name:     protoString("variables"),
						JsonName: protoString("variables"),
						Number:   protoInt32(2),
						Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
						Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
						TypeName: protoString(".google.protobuf.Struct"),
					},
				},
			},
			{
				Name: protoString("GraphQLErrorOut"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{
						Name:     protoString("message"),
						JsonName: protoString("message"),
						Number:   protoInt32(1),
						Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
						Type:     descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
					},
				},
			},
			{
				Name: protoString("ExecuteResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{
						Name:     protoString("data"),
						JsonName: protoString("data"),
						Number:   protoInt32(1),
						Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
						Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
						TypeName: protoString(".google.protobuf.Struct"),
					},
					{
						Name:     protoString("errors"),
						JsonName: protoString("errors"),
						Number:   protoInt32(2),
						Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
						Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
						TypeName: protoString(".cachegraphtest.GraphQLErrorOut"),
					},
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: protoString("ExecService"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       protoString("Execute"),
				InputType:  protoString(".cachegraphtest.ExecuteRequest"),
				OutputType: protoString(".cachegraphtest.ExecuteResponse"),
			}},
		}},
		Syntax: protoString("proto3"),
	}

	files, err := protodesc.NewFiles(&descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{
			protodesc.ToFileDescriptorProto(structpb.File_google_protobuf_struct_proto),
			file,
		},
	})
	if err != nil {
		t.Fatalf("protodesc.NewFiles: %v", err)
	}
	fd, err := files.FindFileByPath("execute.proto")
	if err != nil {
		t.Fatalf("FindFileByPath: %v", err)
	}
	return fd.Services().ByName("ExecService").Methods().ByName("Execute")
}

func TestEncodeRequest_SetsOperationNameAndVariables(t *testing.T) {
	method := buildExecuteMethod(t)

	doc, err := language.ParseQuery(`query Greet($name: String) { greet(name: $name) }`)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	op := doc.Operations[0]

	req, err := encodeRequest(method, operation.ExecuteParams{
		Operation: op,
		Variables: map[string]any{"name": "Ada"},
	})
	if err != nil {
		t.Fatalf("encodeRequest: %v", err)
	}

	nameField := method.Input().Fields().ByName(fieldOperationName)
	if got := req.Get(nameField).String(); got != "Greet" {
		t.Fatalf("operation_name = %q, want Greet", got)
	}

	varsField := method.Input().Fields().ByName(fieldVariables)
	st, err := toStruct(req.Get(varsField).Message())
	if err != nil {
		t.Fatalf("toStruct: %v", err)
	}
	if got := st.AsMap()["name"]; got != "Ada" {
		t.Fatalf("variables[name] = %v, want Ada", got)
	}
}

func TestDecodeResponse_DataAndErrors(t *testing.T) {
	method := buildExecuteMethod(t)

	resp := dynamicpb.NewMessage(method.Output())

	dataField := method.Output().Fields().ByName(fieldData)
	dataStruct, err := structpb.NewStruct(map[string]any{"greet": "hello Ada"})
	if err != nil {
		t.Fatalf("structpb.NewStruct: %v", err)
	}
	resp.Set(dataField, protoreflect.ValueOfMessage(dataStruct.ProtoReflect()))

	errField := method.Output().Fields().ByName(fieldErrors)
	errMsgDesc := errField.Message()
	errItem := dynamicpb.NewMessage(errMsgDesc)
	errItem.Set(errMsgDesc.Fields().ByName(fieldErrorMessage), protoreflect.ValueOfString("boom"))
	list := resp.Mutable(errField).List()
	list.Append(protoreflect.ValueOfMessage(errItem))
	resp.Set(errField, protoreflect.ValueOfList(list))

	result, err := decodeResponse(method, resp)
	if err != nil {
		t.Fatalf("decodeResponse: %v", err)
	}
	if got := result.Data["greet"]; got != "hello Ada" {
		t.Fatalf("Data[greet] = %v, want %q", got, "hello Ada")
	}
	if len(result.Errors) != 1 || result.Errors[0].Message != "boom" {
		t.Fatalf("Errors = %+v, want one error with message boom", result.Errors)
	}
}

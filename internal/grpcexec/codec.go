package grpcexec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hanpama/cachegraph/internal/graphqlerr"
	"github.com/hanpama/cachegraph/internal/operation"
)

// fieldNames are the message field names this codec expects on the
// request/response descriptors it's handed. A method built from a
// different naming convention needs its own codec, not a rename here.
const (
	fieldOperationName = "operation_name"
	fieldVariables     = "variables"
	fieldData          = "data"
	fieldErrors        = "errors"
	fieldErrorMessage  = "message"
)

// encodeRequest builds a *dynamicpb.Message matching method.Input(),
// carrying params.Operation.Name and params.Variables (as a
// google.protobuf.Struct) into the fields named above.
func encodeRequest(method protoreflect.MethodDescriptor, params operation.ExecuteParams) (*dynamicpb.Message, error) {
	req := dynamicpb.NewMessage(method.Input())

	if fd := method.Input().Fields().ByName(fieldOperationName); fd != nil {
		req.Set(fd, protoreflect.ValueOfString(params.Operation.Name))
	}

	varsField := method.Input().Fields().ByName(fieldVariables)
	if varsField == nil {
		return req, nil
	}
	vars, err := structpb.NewStruct(params.Variables)
	if err != nil {
		return nil, fmt.Errorf("grpcexec: encode variables: %w", err)
	}
	req.Set(varsField, protoreflect.ValueOfMessage(vars.ProtoReflect()))
	return req, nil
}

// decodeResponse reads the data/errors fields off resp (built against
// method.Output()) into an operation.ExecuteResult. data is a
// google.protobuf.Struct; each errors item is either a message with a
// string "message" field, read directly, or a google.protobuf.Struct whose
// "message" key is read.
func decodeResponse(method protoreflect.MethodDescriptor, resp protoreflect.Message) (operation.ExecuteResult, error) {
	var result operation.ExecuteResult

	if fd := method.Output().Fields().ByName(fieldData); fd != nil && resp.Has(fd) {
		st, err := toStruct(resp.Get(fd).Message())
		if err != nil {
			return result, fmt.Errorf("grpcexec: decode data: %w", err)
		}
		result.Data = st.AsMap()
	}

	if fd := method.Output().Fields().ByName(fieldErrors); fd != nil {
		list := resp.Get(fd).List()
		for i := 0; i < list.Len(); i++ {
			item := list.Get(i).Message()
			if mf := item.Descriptor().Fields().ByName(fieldErrorMessage); mf != nil && mf.Kind() == protoreflect.StringKind {
				result.Errors = append(result.Errors, graphqlerr.GraphQLError{Message: item.Get(mf).String()})
				continue
			}
			st, err := toStruct(item)
			if err != nil {
				return result, fmt.Errorf("grpcexec: decode error %d: %w", i, err)
			}
			m := st.AsMap()
			msg, _ := m[fieldErrorMessage].(string)
			result.Errors = append(result.Errors, graphqlerr.GraphQLError{Message: msg})
		}
	}

	return result, nil
}

// toStruct converts a dynamicpb message built against
// google.protobuf.Struct's descriptor into a concrete *structpb.Struct, by
// round-tripping through the wire format — dynamicpb has no direct
// conversion to a well-known type's Go struct.
func toStruct(m protoreflect.Message) (*structpb.Struct, error) {
	raw, err := proto.Marshal(m.Interface())
	if err != nil {
		return nil, err
	}
	st := &structpb.Struct{}
	if err := proto.Unmarshal(raw, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Package grpcexec implements operation.Executor over a pooled gRPC
// connection (internal/grpctp), giving the module's gRPC/protobuf stack a
// concrete, runnable consumer: an Executor calling a single RPC method
// whose request carries an operation name and a variables struct, and
// whose response carries a data struct and an error list. Variables and
// data are google.protobuf.Struct, so no per-operation generated Go type is
// needed; each error item is a message with a string "message" field or a
// google.protobuf.Struct.
//
// The method descriptor itself is supplied by the caller (built from a
// .proto file, or assembled at runtime via protodesc — see the executor
// tests for the latter), not discovered: this package has no schema or
// registry of its own.
//
// Only unary calls are supported. internal/grpctp.Transport, kept close to
// the teacher's implementation, exposes a single unary Call method with no
// streaming counterpart; building one from scratch for this example
// executor would mean bypassing Transport entirely rather than adapting
// it, so a server-streaming RPC's Executor would need its own transport
// layer. That is out of scope here — see DESIGN.md.
package grpcexec

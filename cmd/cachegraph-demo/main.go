package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/hanpama/cachegraph/internal/eventbus"
	"github.com/hanpama/cachegraph/internal/graph"
	"github.com/hanpama/cachegraph/internal/grpcexec"
	"github.com/hanpama/cachegraph/internal/grpctp"
	language "github.com/hanpama/cachegraph/internal/language"
	"github.com/hanpama/cachegraph/internal/observable"
	"github.com/hanpama/cachegraph/internal/operation"
	"github.com/hanpama/cachegraph/internal/otel"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

const usage = `cachegraph-demo — run one ObservableOperation and inspect its state over HTTP

USAGE:
  cachegraph-demo [flags]

FLAGS:
  -query <string>             GraphQL query source (default: a sample query)
  -server.addr <addr>         HTTP listen address (default: :8090)
  -backend <Svc=host:port>    Route Execute calls to a real gRPC method instead of
                              the built-in fixture resolver. Requires -descriptorset
                              and -method.
  -descriptorset <file>       Compiled FileDescriptorSet (protoc --descriptor_set_out)
                              naming the method given by -method
  -method <pkg.Service.Method> Fully qualified method to call through -backend
  -otel.endpoint <addr>       OTLP collector endpoint
  -otel.service <name>        OpenTelemetry service name (default: cachegraph-demo)

Once running:
  GET  /state    dumps the operation's current OperationState as JSON
  POST /execute  starts (or restarts) Execute with the request body as variables
`

const defaultQuery = `query Greet($name: String) { greet(name: $name) }`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	query := defaultQuery
	addr := ":8090"
	descriptorSetPath := ""
	methodName := ""
	otelEndpoint := ""
	otelService := "cachegraph-demo"
	var bf backendFlag

	fs := flag.NewFlagSet("cachegraph-demo", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&query, "query", query, "GraphQL query source")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.Var(&bf, "backend", "Map gRPC service to endpoint")
	fs.StringVar(&descriptorSetPath, "descriptorset", descriptorSetPath, "Compiled FileDescriptorSet path")
	fs.StringVar(&methodName, "method", methodName, "Fully qualified method to call")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, usage)
		return err
	}

	doc, err := language.ParseQuery(query)
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}
	if len(doc.Operations) == 0 {
		return fmt.Errorf("query defines no operation")
	}
	op := doc.Operations[0]

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	exec, err := buildExecutor(bf, descriptorSetPath, methodName)
	if err != nil {
		return err
	}

	store := graph.New()
	oo, err := operation.New(operation.Config{
		Graph:     store,
		Executor:  exec,
		Operation: op,
		Fragments: doc.Fragments,
	})
	if err != nil {
		return fmt.Errorf("construct operation: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, oo.GetState())
	})
	mux.HandleFunc("/execute", func(w http.ResponseWriter, r *http.Request) {
		var vars map[string]any
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&vars); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if err := oo.Execute(vars); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, oo.GetState())
	})

	log.Printf("cachegraph-demo listening on %s (operation %q)", addr, op.Name)
	return http.ListenAndServe(addr, mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

type backendFlag struct {
	m map[string][]string
}

func (b *backendFlag) String() string { return "" }

func (b *backendFlag) Set(v string) error {
	parts := strings.SplitN(v, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid backend %q", v)
	}
	svc, ep := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if svc == "" || ep == "" {
		return fmt.Errorf("invalid backend %q", v)
	}
	if b.m == nil {
		b.m = map[string][]string{}
	}
	b.m[svc] = append(b.m[svc], ep)
	return nil
}

// buildExecutor wires either a real grpcexec executor, when -backend and
// -descriptorset/-method are given, or an in-process fixture resolver that
// echoes the greet query's name variable back — letting this binary run
// with no gRPC backend at all for a quick look at ObservableOperation's
// state transitions.
func buildExecutor(bf backendFlag, descriptorSetPath, methodName string) (operation.Executor, error) {
	if len(bf.m) == 0 {
		return fixtureExecutor(), nil
	}
	if descriptorSetPath == "" || methodName == "" {
		return nil, fmt.Errorf("-backend requires -descriptorset and -method")
	}

	method, err := loadMethod(descriptorSetPath, methodName)
	if err != nil {
		return nil, err
	}

	provider := grpctp.NewStaticEndpoints(bf.m)
	transport := grpctp.New(grpctp.WithProvider(provider))
	return grpcexec.New(transport, method), nil
}

func loadMethod(descriptorSetPath, methodName string) (protoreflect.MethodDescriptor, error) {
	raw, err := os.ReadFile(descriptorSetPath)
	if err != nil {
		return nil, fmt.Errorf("read descriptor set: %w", err)
	}
	set := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(raw, set); err != nil {
		return nil, fmt.Errorf("unmarshal descriptor set: %w", err)
	}
	files, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, fmt.Errorf("build file registry: %w", err)
	}

	i := strings.LastIndex(methodName, ".")
	if i < 0 {
		return nil, fmt.Errorf("-method must be fully qualified, e.g. pkg.Service.Method")
	}
	svcName, mthName := methodName[:i], methodName[i+1:]

	svcDesc, err := files.FindDescriptorByName(protoreflect.FullName(svcName))
	if err != nil {
		return nil, fmt.Errorf("find service %s: %w", svcName, err)
	}
	svc, ok := svcDesc.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, fmt.Errorf("%s is not a service", svcName)
	}
	method := svc.Methods().ByName(protoreflect.Name(mthName))
	if method == nil {
		return nil, fmt.Errorf("method %s not found on %s", mthName, svcName)
	}
	return method, nil
}

// fixtureExecutor resolves the sample query entirely in-process, standing
// in for a backend during local experimentation. It ignores Operation and
// only ever serves the demo's "greet" field, matching defaultQuery.
func fixtureExecutor() operation.Executor {
	return func(params operation.ExecuteParams) *observable.Observable[operation.ExecuteResult] {
		name, _ := params.Variables["name"].(string)
		if name == "" {
			name = "World"
		}
		return observable.Just(operation.ExecuteResult{
			Data: map[string]any{"greet": "hello " + name},
		})
	}
}

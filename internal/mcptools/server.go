package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// objectSchema is the output schema shared in shape by every tool. Impact
// trees are recursive, so output schemas are declared rather than inferred.
func objectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

// NewKnowledgeMCPServer creates an MCP server with all 10 knowledge tools registered.
func NewKnowledgeMCPServer(svc *KnowledgeService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "lineage",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "create_version",
		Description:  "Store a new immutable version of an artifact. The content may be an object, a string or any JSON value. Returns the version with its generated id.",
		OutputSchema: objectSchema(),
	}, svc.CreateVersion)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "get_version",
		Description:  "Fetch one version of an artifact by version id, by timestamp (the version current at that instant), or the latest when neither is given.",
		OutputSchema: objectSchema(),
	}, svc.GetVersion)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "list_versions",
		Description:  "List versions of an artifact newest first. Optionally bound by creation time, filter by tags and limit the count.",
		OutputSchema: objectSchema(),
	}, svc.ListVersions)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "list_artifacts",
		Description:  "List every versioned artifact with its lifecycle state and version count. Optionally filter by artifact type.",
		OutputSchema: objectSchema(),
	}, svc.ListArtifacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "register_dependency",
		Description:  "Record that a source artifact relies on a target artifact. Registering the same source, type and target again updates the existing edge.",
		OutputSchema: objectSchema(),
	}, svc.RegisterDependency)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "get_dependencies",
		Description:  "Return the direct dependency edges of an artifact: outgoing (what it relies on), incoming (what relies on it) or both.",
		OutputSchema: objectSchema(),
	}, svc.GetDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "analyze_impact",
		Description:  "Walk the dependency graph around an artifact. Upstream lists what it is affected by, downstream what it affects, as trees and as flat lists. Optionally renders a Mermaid diagram.",
		OutputSchema: objectSchema(),
	}, svc.AnalyzeImpact)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "compare_versions",
		Description:  "Diff two versions of an artifact: metadata keys, tags and content. Text content gets line counts, a similarity percentage and a unified diff.",
		OutputSchema: objectSchema(),
	}, svc.CompareVersions)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "update_lifecycle_state",
		Description:  "Move an artifact, and optionally one of its versions, to a new lifecycle state. The transition is appended to the artifact's history.",
		OutputSchema: objectSchema(),
	}, svc.UpdateLifecycleState)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "get_state_history",
		Description:  "Return the lifecycle transitions of an artifact oldest first, optionally only those that named a given version.",
		OutputSchema: objectSchema(),
	}, svc.GetStateHistory)

	return server
}

// RunMCPServer starts an HTTP server exposing the knowledge MCP tools.
func RunMCPServer(ctx context.Context, svc *KnowledgeService, addr string) error {
	server := NewKnowledgeMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	svc.logger.Info("mcp server listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunMCPServerStdio serves the knowledge MCP tools over stdin/stdout until
// the client disconnects or ctx is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *KnowledgeService) error {
	return NewKnowledgeMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}

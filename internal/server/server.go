// Package server exposes the knowledge graph over the Model Context Protocol.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gomemkg/memkg/internal/apptype"
	"github.com/gomemkg/memkg/internal/buildinfo"
	"github.com/gomemkg/memkg/internal/database"
	"github.com/gomemkg/memkg/internal/metrics"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer handles MCP protocol communication
type MCPServer struct {
	server *mcp.Server
	store  *database.Store
}

// NewMCPServer creates a new MCP server backed by the given store
func NewMCPServer(store *database.Store) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "memkg",
		Version: buildinfo.Version,
	}, nil)

	mcpServer := &MCPServer{
		server: server,
		store:  store,
	}

	// initialize metrics from env (no-op if disabled)
	metrics.InitFromEnv()
	mcpServer.setupToolHandlers()
	return mcpServer
}

// setupToolHandlers registers all MCP tools
func (s *MCPServer) setupToolHandlers() {
	createEntitiesInputSchema, err := jsonschema.For[apptype.CreateEntitiesArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for CreateEntitiesArgs: %v", err))
	}
	createRelationsInputSchema, err := jsonschema.For[apptype.CreateRelationsArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for CreateRelationsArgs: %v", err))
	}
	// Tools that return plain text do not need an output schema. Only
	// tools returning structured content should declare OutputSchema.
	searchNodesInputSchema, err := jsonschema.For[apptype.SearchNodesArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for SearchNodesArgs: %v", err))
	}
	searchNodesOutputSchema, err := jsonschema.For[apptype.GraphResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for GraphResult (search): %v", err))
	}
	readGraphInputSchema, err := jsonschema.For[apptype.ReadGraphArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for ReadGraphArgs: %v", err))
	}
	readGraphOutputSchema, err := jsonschema.For[apptype.GraphResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for GraphResult (read): %v", err))
	}
	deleteEntityInputSchema, err := jsonschema.For[apptype.DeleteEntityArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for DeleteEntityArgs: %v", err))
	}
	deleteRelationInputSchema, err := jsonschema.For[apptype.DeleteRelationArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for DeleteRelationArgs: %v", err))
	}
	getEntityInputSchema, err := jsonschema.For[apptype.GetEntityWithRelationsArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for GetEntityWithRelationsArgs: %v", err))
	}
	getEntityOutputSchema, err := jsonschema.For[apptype.EntityNeighborhood]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for EntityNeighborhood: %v", err))
	}
	healthInputSchema, err := jsonschema.For[apptype.HealthArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for HealthArgs: %v", err))
	}
	healthOutputSchema, err := jsonschema.For[apptype.HealthResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for HealthResult: %v", err))
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_entities",
		Title:       "Create Entities",
		Description: "Create or update entities with observations and optional embeddings.",
		InputSchema: createEntitiesInputSchema,
	}, s.handleCreateEntities)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_relations",
		Title:       "Create Relations",
		Description: "Create typed directed relations between entities. Duplicates are absorbed silently.",
		InputSchema: createRelationsInputSchema,
	}, s.handleCreateRelations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "search_nodes",
		Title:        "Search Nodes",
		Description:  "Search for entities and their relations using text or vector similarity.",
		InputSchema:  searchNodesInputSchema,
		OutputSchema: searchNodesOutputSchema,
	}, s.handleSearchNodes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "read_graph",
		Title:        "Read Graph",
		Description:  "Get recent entities and their relations.",
		InputSchema:  readGraphInputSchema,
		OutputSchema: readGraphOutputSchema,
	}, s.handleReadGraph)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_entity",
		Title:       "Delete Entity",
		Description: "Delete an entity and all its associated data (observations and relations).",
		InputSchema: deleteEntityInputSchema,
	}, s.handleDeleteEntity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_relation",
		Title:       "Delete Relation",
		Description: "Delete a specific relation between entities.",
		InputSchema: deleteRelationInputSchema,
	}, s.handleDeleteRelation)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "get_entity_with_relations",
		Title:        "Get Entity With Relations",
		Description:  "Fetch an entity together with its relations and 1-hop neighbors.",
		InputSchema:  getEntityInputSchema,
		OutputSchema: getEntityOutputSchema,
	}, s.handleGetEntityWithRelations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "health_check",
		Title:        "Health Check",
		Description:  "Returns server and configuration information.",
		InputSchema:  healthInputSchema,
		OutputSchema: healthOutputSchema,
	}, s.handleHealth)
}

// handleCreateEntities handles the create_entities tool call
func (s *MCPServer) handleCreateEntities(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CreateEntitiesArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("create_entities")
	var success bool
	defer func() { done(success) }()
	entities := params.Arguments.Entities

	if err := s.store.CreateEntities(ctx, entities); err != nil {
		return nil, fmt.Errorf("failed to create entities: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Successfully processed %d entities", len(entities)),
			},
		},
	}, nil
}

// handleCreateRelations handles the create_relations tool call
func (s *MCPServer) handleCreateRelations(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CreateRelationsArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("create_relations")
	var success bool
	defer func() { done(success) }()
	relations := params.Arguments.Relations

	created, err := s.store.CreateRelations(ctx, relations)
	if err != nil {
		return nil, fmt.Errorf("failed to create relations: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Created %d of %d relations", created, len(relations)),
			},
		},
	}, nil
}

// handleSearchNodes handles the search_nodes tool call
func (s *MCPServer) handleSearchNodes(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.SearchNodesArgs],
) (*mcp.CallToolResultFor[apptype.GraphResult], error) {
	done := metrics.TimeTool("search_nodes")
	var success bool
	defer func() { done(success) }()

	entities, relations, err := s.store.SearchNodes(ctx, params.Arguments.Query, params.Arguments.Limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.GraphResult]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: "Search completed successfully",
			},
		},
		StructuredContent: apptype.GraphResult{
			Entities:  entities,
			Relations: relations,
		},
	}, nil
}

// handleReadGraph handles the read_graph tool call
func (s *MCPServer) handleReadGraph(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ReadGraphArgs],
) (*mcp.CallToolResultFor[apptype.GraphResult], error) {
	done := metrics.TimeTool("read_graph")
	var success bool
	defer func() { done(success) }()

	entities, relations, err := s.store.ReadGraph(ctx, params.Arguments.Limit)
	if err != nil {
		return nil, fmt.Errorf("read graph failed: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.GraphResult]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: "Graph read successfully",
			},
		},
		StructuredContent: apptype.GraphResult{
			Entities:  entities,
			Relations: relations,
		},
	}, nil
}

// handleDeleteEntity handles the delete_entity tool call
func (s *MCPServer) handleDeleteEntity(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteEntityArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("delete_entity")
	var success bool
	defer func() { done(success) }()
	name := params.Arguments.Name

	if err := s.store.DeleteEntity(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to delete entity: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Successfully deleted entity %q", name),
			},
		},
	}, nil
}

// handleDeleteRelation handles the delete_relation tool call
func (s *MCPServer) handleDeleteRelation(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteRelationArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("delete_relation")
	var success bool
	defer func() { done(success) }()
	source := params.Arguments.Source
	target := params.Arguments.Target
	relationType := params.Arguments.Type

	if err := s.store.DeleteRelation(ctx, source, target, relationType); err != nil {
		return nil, fmt.Errorf("failed to delete relation: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Successfully deleted relation: %s -> %s (%s)", source, target, relationType),
			},
		},
	}, nil
}

// handleGetEntityWithRelations handles the get_entity_with_relations tool call
func (s *MCPServer) handleGetEntityWithRelations(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GetEntityWithRelationsArgs],
) (*mcp.CallToolResultFor[apptype.EntityNeighborhood], error) {
	done := metrics.TimeTool("get_entity_with_relations")
	var success bool
	defer func() { done(success) }()

	entity, relations, neighbors, err := s.store.GetEntityWithRelations(ctx, params.Arguments.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get entity with relations: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.EntityNeighborhood]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Fetched entity %q with %d relations", entity.Name, len(relations)),
			},
		},
		StructuredContent: apptype.EntityNeighborhood{
			Entity:          *entity,
			Relations:       relations,
			RelatedEntities: neighbors,
		},
	}, nil
}

// handleHealth returns basic server health information
func (s *MCPServer) handleHealth(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HealthArgs],
) (*mcp.CallToolResultFor[apptype.HealthResult], error) {
	done := metrics.TimeTool("health_check")
	defer func() { done(true) }()
	cfg := s.store.Config()
	res := apptype.HealthResult{
		Name:          "memkg",
		Version:       buildinfo.Version,
		Revision:      buildinfo.Revision,
		BuildDate:     buildinfo.BuildDate,
		EmbeddingDims: cfg.EmbeddingDims,
		VectorSearch:  s.store.SupportsVectorSearch(),
	}
	return &mcp.CallToolResultFor[apptype.HealthResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: "ok"}},
		StructuredContent: res,
	}, nil
}

// Run starts the MCP server with stdio transport
func (s *MCPServer) Run(ctx context.Context) error {
	transport := mcp.NewStdioTransport()
	return s.server.Run(ctx, transport)
}

// RunSSE starts the MCP server over SSE at the given address and endpoint
func (s *MCPServer) RunSSE(ctx context.Context, addr string, endpoint string) error {
	handler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server { return s.server })
	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("SSE MCP server listening", "addr", addr, "endpoint", endpoint)
	return srv.ListenAndServe()
}

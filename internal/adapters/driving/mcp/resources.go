package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for pipeline resources.
	uriScheme = "sercha-rag://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Pipeline readiness, models and document counts",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "domains",
		Name:        "domains",
		Description: "Knowledge domains that hold documents",
		MIMEType:    "application/json",
	}, s.handleDomainsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "domains/{domain}",
		Name:        "domain",
		Description: "Document count of a single knowledge domain",
		MIMEType:    "application/json",
	}, s.handleDomainResource)
}

func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.RAG.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}
	return jsonResource(req.Params.URI, toStatusOutput(status))
}

// handleDomainsResource lists domains with their document counts.
func (s *Server) handleDomainsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.RAG.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}

	type domainInfo struct {
		Name      string `json:"name"`
		Documents int    `json:"documents"`
		URI       string `json:"uri"`
	}

	infos := make([]domainInfo, 0, len(status.Namespaces))
	for _, name := range sortedDomains(status.Namespaces) {
		infos = append(infos, domainInfo{
			Name:      name,
			Documents: status.Namespaces[name],
			URI:       uriScheme + "domains/" + name,
		})
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleDomainResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractDomain(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.RAG.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}
	count, ok := status.Namespaces[name]
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return jsonResource(req.Params.URI, map[string]any{
		"name":      name,
		"documents": count,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDomain extracts the domain from a URI like sercha-rag://domains/{domain}.
func extractDomain(uri string) string {
	const prefix = uriScheme + "domains/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	name := strings.TrimPrefix(uri, prefix)
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}

package forge

import (
	"context"
	"fmt"

	"github.com/hazyhaar/locforge/kit"
)

// Request and response shapes shared by the HTTP and MCP transports.

type inferRequest struct {
	HTML string `json:"html"`
	URL  string `json:"url"`
}

type analyzeRequest struct {
	URLs []string `json:"urls"`
	// Name, when set, saves the successful pages as a new framework.
	Name   string        `json:"name,omitempty"`
	Config ProjectConfig `json:"config,omitempty"`
}

type analyzeResponse struct {
	Results   []PageResult `json:"results"`
	Framework *Project     `json:"framework,omitempty"`
}

type idRequest struct {
	ID string `json:"id"`
}

type generateRequest struct {
	ID      string   `json:"id,omitempty"`
	Project *Project `json:"project,omitempty"`
}

type generateResponse struct {
	Files map[string]string `json:"files"`
}

type deleteResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// endpoints lists every operation under its op name, wrapped with logging.
type endpoints struct {
	infer           kit.Endpoint
	analyze         kit.Endpoint
	saveFramework   kit.Endpoint
	listFrameworks  kit.Endpoint
	getFramework    kit.Endpoint
	updateFramework kit.Endpoint
	deleteFramework kit.Endpoint
	generate        kit.Endpoint
}

func (s *Service) endpoints() endpoints {
	wrap := func(op string, e kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(s.logger, op))(e)
	}
	return endpoints{
		infer:           wrap("infer", s.inferEndpoint),
		analyze:         wrap("analyze", s.analyzeEndpoint),
		saveFramework:   wrap("save_framework", s.saveEndpoint),
		listFrameworks:  wrap("list_frameworks", s.listEndpoint),
		getFramework:    wrap("get_framework", s.getEndpoint),
		updateFramework: wrap("update_framework", s.updateEndpoint),
		deleteFramework: wrap("delete_framework", s.deleteEndpoint),
		generate:        wrap("generate", s.generateEndpoint),
	}
}

func (s *Service) inferEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*inferRequest)
	return s.AnalyzeHTML(ctx, r.HTML, r.URL)
}

func (s *Service) analyzeEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*analyzeRequest)
	results, err := s.Analyze(ctx, r.URLs)
	if err != nil {
		return nil, err
	}
	resp := &analyzeResponse{Results: results}
	if r.Name == "" {
		return resp, nil
	}
	p := s.BuildProject(r.Name, r.Config, results)
	if len(p.Pages) == 0 {
		return nil, fmt.Errorf("%w: no url could be analysed", ErrInvalidInput)
	}
	saved, err := s.SaveFramework(ctx, p)
	if err != nil {
		return nil, err
	}
	resp.Framework = saved
	return resp, nil
}

func (s *Service) saveEndpoint(ctx context.Context, req any) (any, error) {
	return s.SaveFramework(ctx, req.(*Project))
}

func (s *Service) listEndpoint(ctx context.Context, _ any) (any, error) {
	return s.ListFrameworks(ctx)
}

func (s *Service) getEndpoint(ctx context.Context, req any) (any, error) {
	return s.GetFramework(ctx, req.(*idRequest).ID)
}

func (s *Service) updateEndpoint(ctx context.Context, req any) (any, error) {
	return s.UpdateFramework(ctx, req.(*Project))
}

func (s *Service) deleteEndpoint(ctx context.Context, req any) (any, error) {
	id := req.(*idRequest).ID
	if err := s.DeleteFramework(ctx, id); err != nil {
		return nil, err
	}
	return &deleteResponse{ID: id, Status: "deleted"}, nil
}

func (s *Service) generateEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*generateRequest)
	var files map[string]string
	var err error
	switch {
	case r.Project != nil:
		files, err = s.Generate(r.Project)
	case r.ID != "":
		files, err = s.GenerateFramework(ctx, r.ID)
	default:
		return nil, fmt.Errorf("%w: id or project is required", ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	return &generateResponse{Files: files}, nil
}

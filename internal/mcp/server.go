// Package mcp exposes substitution, validation, assembly and manifest lookup
// as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"tracekit/internal/assemble"
	"tracekit/internal/config"
	"tracekit/internal/fsys"
	"tracekit/internal/logging"
	"tracekit/internal/manifest"
	"tracekit/internal/substitute"
	"tracekit/internal/validate"
)

// Version is reported to clients during initialization.
var Version = "dev"

// Server wraps the MCP SDK server. Relative paths in tool calls resolve
// against ProjectRoot.
type Server struct {
	MCPServer   *sdkmcp.Server
	ProjectRoot string

	fs  fsys.FS
	cfg *config.Config
}

// NewServer creates a server backed by f. A nil cfg uses config.Default.
func NewServer(f fsys.FS, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	cwd, _ := os.Getwd()
	s := &Server{ProjectRoot: cwd, fs: f, cfg: cfg}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "tracekit", Version: Version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "substitute",
		Description: "Replace a literal placeholder token in a target file with the full content of a source file. Fails if the token is missing or, unless replace_all is set, occurs more than once.",
	}, s.handleSubstitute)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "validate",
		Description: "Validate an analysis directory (queries/, data/, visuals/, report and trace-metadata.json) and return the findings.",
	}, s.handleValidate)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "assemble",
		Description: "Run an assembly plan (YAML or JSON list of copy and substitution steps).",
	}, s.handleAssemble)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "manifest_url",
		Description: "Return the raw URL the listing system will fetch for an analysis: {repository.url}/{repository.branch}/{analysis.htmlFile}.",
	}, s.handleManifestURL)
}

func (s *Server) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.ProjectRoot, p)
}

// --- Tool input/output types ---

type substituteInput struct {
	Target     string `json:"target" jsonschema:"file containing the placeholder"`
	Token      string `json:"token" jsonschema:"literal placeholder text, e.g. {{VISUAL_01_PLACEHOLDER}}"`
	Source     string `json:"source" jsonschema:"file whose content replaces the placeholder"`
	Output     string `json:"output,omitempty" jsonschema:"write the result here instead of modifying target"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"replace every occurrence instead of failing when the token repeats"`
}

type validateInput struct {
	Root      string   `json:"root" jsonschema:"analysis root directory"`
	Verbose   bool     `json:"verbose,omitempty" jsonschema:"include info findings"`
	CheckSync bool     `json:"check_sync,omitempty" jsonschema:"verify data files are embedded in the report and visuals"`
	MinSize   int64    `json:"min_size,omitempty" jsonschema:"minimum size in bytes for every component file"`
	Skip      []string `json:"skip,omitempty" jsonschema:"checks to skip (structure, pairing, size, manifest, placeholders, sync)"`
}

type assembleInput struct {
	Plan     string `json:"plan" jsonschema:"path to the assembly plan"`
	DryRun   bool   `json:"dry_run,omitempty" jsonschema:"check every step without writing"`
	Parallel int    `json:"parallel,omitempty" jsonschema:"maximum targets assembled at once"`
}

type manifestURLInput struct {
	Root string `json:"root" jsonschema:"analysis root directory containing trace-metadata.json"`
}

type manifestURLOutput struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	RawURL string `json:"raw_url"`
}

// --- Handlers ---

func (s *Server) handleSubstitute(_ context.Context, _ *sdkmcp.CallToolRequest, in substituteInput) (*sdkmcp.CallToolResult, substitute.Result, error) {
	req := substitute.Request{
		Target: s.resolve(in.Target),
		Token:  in.Token,
		Source: s.resolve(in.Source),
		Output: s.resolve(in.Output),
	}
	if in.ReplaceAll {
		req.Multiplicity = substitute.MultiplicityReplaceAll
	}
	eng := substitute.New(s.fs, substitute.WithMultiplicity(s.cfg.Multiplicity()))
	res, err := eng.Apply(req)
	if err != nil {
		return nil, substitute.Result{}, err
	}
	return nil, res, nil
}

func (s *Server) handleValidate(ctx context.Context, _ *sdkmcp.CallToolRequest, in validateInput) (*sdkmcp.CallToolResult, validate.Report, error) {
	opts := s.cfg.ValidateOptions()
	opts.Verbose = opts.Verbose || in.Verbose
	opts.CheckSync = opts.CheckSync || in.CheckSync
	if in.MinSize > 0 {
		opts.Thresholds = validate.Uniform(in.MinSize)
	}
	for _, name := range in.Skip {
		c, err := validate.ParseCheck(name)
		if err != nil {
			return nil, validate.Report{}, err
		}
		opts.Skip = append(opts.Skip, c)
	}
	rep, err := validate.New(s.fs, opts).Run(ctx, s.resolve(in.Root))
	if err != nil {
		return nil, validate.Report{}, err
	}
	return nil, *rep, nil
}

func (s *Server) handleAssemble(ctx context.Context, _ *sdkmcp.CallToolRequest, in assembleInput) (*sdkmcp.CallToolResult, assemble.Outcome, error) {
	plan, err := assemble.LoadPlan(s.fs, s.resolve(in.Plan))
	if err != nil {
		return nil, assemble.Outcome{}, err
	}
	out, err := assemble.NewRunner(s.fs, assemble.Options{Parallel: in.Parallel, DryRun: in.DryRun}).Run(ctx, plan)
	if err != nil {
		return nil, assemble.Outcome{}, err
	}
	return nil, *out, nil
}

func (s *Server) handleManifestURL(_ context.Context, _ *sdkmcp.CallToolRequest, in manifestURLInput) (*sdkmcp.CallToolResult, manifestURLOutput, error) {
	m, err := manifest.Load(s.fs, filepath.Join(s.resolve(in.Root), manifest.FileName))
	if err != nil {
		return nil, manifestURLOutput{}, err
	}
	u, err := m.RawURL()
	if err != nil {
		return nil, manifestURLOutput{}, err
	}
	out := manifestURLOutput{RawURL: u}
	if m.Analysis != nil {
		out.ID, out.Title = m.Analysis.ID, m.Analysis.Title
	}
	logging.New("mcp").Debug("manifest url resolved", "root", in.Root, "url", u)
	return nil, out, nil
}

// Run serves over stdio until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	if err := s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

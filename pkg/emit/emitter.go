package emit

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/rs/zerolog"

	"github.com/firmforge/firmforge/pkg/model"
	"github.com/firmforge/firmforge/pkg/topics"
)

//go:embed templates/*.tmpl
var builtinTemplates embed.FS

// Template names and the headers they render to.
const (
	tmplTasks     = "tasks_header.tmpl"
	tmplMessaging = "messaging_config.tmpl"
	tmplPacket    = "packet_header.tmpl"
	tmplCommands  = "command_header.tmpl"

	// FileTasks is the generated task configuration header.
	FileTasks = "generated_tasks.hpp"

	// FileMessaging is the derived messaging limits header.
	FileMessaging = "messaging_config.hpp"

	// FilePacket is the generated packet framing header.
	FilePacket = "generated_packet_config.hpp"

	// FileCommands is the generated command table header.
	FileCommands = "generated_command_table.hpp"
)

var templateNames = []string{tmplTasks, tmplMessaging, tmplPacket, tmplCommands}

// Options configures a CppEmitter.
type Options struct {
	// OutDir is the directory generated headers are written to.
	OutDir string `validate:"required"`

	// TemplateDir optionally overrides the embedded templates. Every
	// template name must resolve to a file in the directory; a missing
	// file is a construction error, never a silent fallback.
	TemplateDir string
}

// CppEmitter renders validated domains into C++ headers.
type CppEmitter struct {
	opts      Options
	templates map[string]*template.Template
	logger    zerolog.Logger
}

// NewCppEmitter parses the emitter's templates and returns an emitter
// writing into opts.OutDir. When opts.TemplateDir is set, every
// template is loaded from that directory instead of the embedded set.
func NewCppEmitter(opts Options, logger zerolog.Logger) (*CppEmitter, error) {
	e := &CppEmitter{
		opts:      opts,
		templates: make(map[string]*template.Template, len(templateNames)),
		logger:    logger.With().Str("component", "emit").Logger(),
	}

	funcs := sprig.TxtFuncMap()
	funcs["hex2"] = func(v int) string { return fmt.Sprintf("0x%02X", v) }
	funcs["hex4"] = func(v int) string { return fmt.Sprintf("0x%04X", v) }

	for _, name := range templateNames {
		src, err := e.templateSource(name)
		if err != nil {
			return nil, err
		}
		tmpl, err := template.New(name).Funcs(funcs).Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		e.templates[name] = tmpl
	}
	return e, nil
}

// templateSource reads one template, from the override directory when
// configured, from the embedded set otherwise.
func (e *CppEmitter) templateSource(name string) ([]byte, error) {
	if e.opts.TemplateDir != "" {
		src, err := os.ReadFile(filepath.Join(e.opts.TemplateDir, name))
		if err != nil {
			return nil, fmt.Errorf("loading template override %s: %w", name, err)
		}
		return src, nil
	}
	src, err := builtinTemplates.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("loading embedded template %s: %w", name, err)
	}
	return src, nil
}

// EmitTasks renders the task configuration header and the derived
// messaging limits header. It returns the written file paths.
func (e *CppEmitter) EmitTasks(ctx context.Context, domain *model.TaskDomain, table *topics.Table) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view, err := newTasksView(domain, table)
	if err != nil {
		return nil, err
	}
	tasksPath, err := e.render(tmplTasks, FileTasks, view)
	if err != nil {
		return nil, err
	}
	msgPath, err := e.render(tmplMessaging, FileMessaging, newMessagingView(domain))
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Int("tasks", len(domain.Tasks)).
		Int("messages", len(domain.Messages)).
		Int("channels", len(domain.Channels)).
		Str("file", tasksPath).
		Msg("Generated task configuration")
	return []string{tasksPath, msgPath}, nil
}

// EmitPacket renders the packet framing header. It returns the written
// file paths.
func (e *CppEmitter) EmitPacket(ctx context.Context, domain *model.PacketDomain) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := e.render(tmplPacket, FilePacket, newPacketView(domain))
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Int("opcodes", len(domain.Opcodes)).
		Str("file", path).
		Msg("Generated packet configuration")
	return []string{path}, nil
}

// EmitCommands renders the command table header. It returns the written
// file paths.
func (e *CppEmitter) EmitCommands(ctx context.Context, domain *model.CommandDomain) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := e.render(tmplCommands, FileCommands, newCommandsView(domain))
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Int("commands", len(domain.Commands)).
		Str("file", path).
		Msg("Generated command table")
	return []string{path}, nil
}

// render executes one template into OutDir/fileName.
func (e *CppEmitter) render(tmplName, fileName string, view any) (string, error) {
	var buf bytes.Buffer
	if err := e.templates[tmplName].Execute(&buf, view); err != nil {
		return "", fmt.Errorf("rendering %s: %w", fileName, err)
	}

	if err := os.MkdirAll(e.opts.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(e.opts.OutDir, fileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", fileName, err)
	}
	return path, nil
}

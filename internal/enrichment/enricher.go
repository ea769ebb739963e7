package enrichment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vanshika/sectarget/internal/domain"
)

// Enricher runs a rank-based set-enrichment analysis over a ranked gene list.
// The statistic itself is computed outside this module.
type Enricher interface {
	Enrich(ctx context.Context, ranked []domain.RankedGene) (*ResultTable, error)
}

// Placeholders substituted into CommandEnricher arguments.
const (
	PlaceholderInput     = "{input}"
	PlaceholderGeneSets  = "{gmt}"
	PlaceholderOutput    = "{output}"
	PlaceholderProcesses = "{processes}"
)

// ErrNoCommand is returned when a CommandEnricher has nothing to run.
var ErrNoCommand = errors.New("enrichment command is not configured")

// CommandEnricher delegates enrichment to an external program that reads the
// ranked list TSV and writes a result TSV.
type CommandEnricher struct {
	Command      []string
	GeneSetsPath string
	// Processes is a parallelism hint forwarded to the program.
	Processes int
	// WorkDir hosts the exchanged files; a temporary directory is used when empty.
	WorkDir string
}

// Enrich writes ranked to disk, runs the command and reads back its output.
func (c *CommandEnricher) Enrich(ctx context.Context, ranked []domain.RankedGene) (*ResultTable, error) {
	if len(c.Command) == 0 {
		return nil, ErrNoCommand
	}

	dir := c.WorkDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "sectarget-enrich-*")
		if err != nil {
			return nil, fmt.Errorf("create enrichment workdir: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	input := filepath.Join(dir, "gsea_input.tsv")
	output := filepath.Join(dir, "gsea_output.tsv")
	if err := WriteInput(input, ranked); err != nil {
		return nil, err
	}

	processes := c.Processes
	if processes <= 0 {
		processes = 4
	}
	replacer := strings.NewReplacer(
		PlaceholderInput, input,
		PlaceholderGeneSets, c.GeneSetsPath,
		PlaceholderOutput, output,
		PlaceholderProcesses, strconv.Itoa(processes),
	)
	args := make([]string, len(c.Command))
	for i, a := range c.Command {
		args[i] = replacer.Replace(a)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return ReadResults(output)
}

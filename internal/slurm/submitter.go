package slurm

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"xia2pipe/internal/config"
	"xia2pipe/internal/logging"
	"xia2pipe/internal/services"
)

var submittedPattern = regexp.MustCompile(`Submitted batch job (\d+)`)

// Submitter hands batch scripts to the scheduler.
type Submitter struct {
	command   string
	scriptDir string
	opts      options
}

// NewSubmitter builds a Submitter using the configured submit command.
func NewSubmitter(cfg *config.Config, opts ...Option) *Submitter {
	return &Submitter{
		command:   cfg.Scheduler.SubmitCommand,
		scriptDir: cfg.Scheduler.ScriptDir,
		opts:      buildOptions("slurm", opts),
	}
}

// Submit writes script to <script_dir>/<name>-*.sh and submits it. The file is
// removed once the scheduler accepts it and kept for inspection otherwise.
// The returned job id is empty when the scheduler output did not name one.
func (s *Submitter) Submit(ctx context.Context, name, script string) (string, error) {
	binary, args := splitCommand(s.command)
	if binary == "" {
		return "", services.Wrap(services.ErrConfiguration, "", "submit", "scheduler.submit_command is empty", nil)
	}
	if err := os.MkdirAll(s.scriptDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrScheduler, "", "submit", "create script directory", err)
	}
	file, err := os.CreateTemp(s.scriptDir, name+"-*.sh")
	if err != nil {
		return "", services.Wrap(services.ErrScheduler, "", "submit", "create script", err)
	}
	path := file.Name()
	if _, err := file.WriteString(script); err != nil {
		_ = file.Close()
		return "", services.Wrap(services.ErrScheduler, "", "submit", "write script "+path, err)
	}
	if err := file.Close(); err != nil {
		return "", services.Wrap(services.ErrScheduler, "", "submit", "close script "+path, err)
	}

	var jobID string
	err = s.opts.exec.Run(ctx, binary, append(args, path), func(line string) {
		if m := submittedPattern.FindStringSubmatch(line); m != nil && jobID == "" {
			jobID = m[1]
		}
	})
	if err != nil {
		return "", services.Wrap(services.ErrScheduler, "", "submit",
			fmt.Sprintf("%s rejected %s (script kept)", binary, path), err)
	}
	if err := os.Remove(path); err != nil {
		s.opts.logger.Debug("submitted script not removed", logging.String("path", path), logging.Error(err))
	}
	s.opts.logger.Debug("job submitted",
		logging.String("job_name", name),
		logging.String(logging.FieldJobID, jobID),
	)
	return jobID, nil
}

// Package slurm talks to the batch scheduler through its command-line tools.
//
// Inspector lists the pipeline's queued and running jobs with sacct and maps
// their names back to work items. Submitter writes a batch script to the
// script directory and hands it to sbatch. Both run commands through an
// Executor so tests can replace the scheduler with a stub.
package slurm

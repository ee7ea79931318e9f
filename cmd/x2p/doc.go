// Command x2p drives the xia2pipe reduction and refinement pipeline: it
// submits unfinished work items to SLURM, records finished results in the
// catalogue, reports per-stage progress and runs the periodic watch loop.
package main

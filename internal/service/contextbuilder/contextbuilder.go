// Package contextbuilder implements the Context Builder (spec §4.6):
// upstream facts (decisions/artifacts from done predecessors) and
// downstream "needs" inference from dependents, assembled into the
// object the Coordinator uses to build assignment instructions.
package contextbuilder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	domainartifact "github.com/marcusai/marcus/internal/domain/artifact"
	domaindecision "github.com/marcusai/marcus/internal/domain/decision"
	domaintask "github.com/marcusai/marcus/internal/domain/task"
	portartifact "github.com/marcusai/marcus/internal/port/artifact"
	portdecision "github.com/marcusai/marcus/internal/port/decision"
	portllm "github.com/marcusai/marcus/internal/port/llm"
	porttask "github.com/marcusai/marcus/internal/port/task"
)

const maxPerArtifactType = 5

type DependencyGraph interface {
	PredecessorsOf(projectID, taskID string) []string
	DependentsOf(projectID, taskID string) []string
}

type Service struct {
	tasks     porttask.Repository
	decisions portdecision.Repository
	artifacts portartifact.Repository
	graph     DependencyGraph
	model     portllm.Model
}

func NewService(tasks porttask.Repository, decisions portdecision.Repository, artifacts portartifact.Repository, graph DependencyGraph, model portllm.Model) *Service {
	return &Service{tasks: tasks, decisions: decisions, artifacts: artifacts, graph: graph, model: model}
}

// BuildResult is the object consumed by the Coordinator to construct
// assignment instructions (spec §4.6).
type BuildResult struct {
	UpstreamArtifacts []domainartifact.Artifact `json:"upstream_artifacts"`
	UpstreamDecisions []domaindecision.Decision `json:"upstream_decisions"`
	DependentNeeds    []string                  `json:"dependent_needs"`
}

func (s *Service) Build(ctx context.Context, projectID string, t domaintask.Task) (BuildResult, error) {
	result := BuildResult{}

	for _, predID := range s.graph.PredecessorsOf(projectID, t.ID) {
		pred, err := s.tasks.GetByID(ctx, predID)
		if err != nil || pred.Status != domaintask.StatusDone {
			continue
		}

		decisions, err := s.decisions.List(ctx, domaindecision.ListFilters{})
		if err == nil {
			for _, d := range decisions {
				if containsTask(d.AffectsTasks, t.ID) {
					result.UpstreamDecisions = append(result.UpstreamDecisions, d)
				}
			}
		}

		artifacts, err := s.artifacts.List(ctx, domainartifact.ListFilters{TaskID: &predID})
		if err == nil {
			result.UpstreamArtifacts = append(result.UpstreamArtifacts, capPerType(artifacts, maxPerArtifactType)...)
		}
	}

	for _, depID := range s.graph.DependentsOf(projectID, t.ID) {
		dep, err := s.tasks.GetByID(ctx, depID)
		if err != nil {
			continue
		}
		result.DependentNeeds = append(result.DependentNeeds, needFor(dep))
	}

	return result, nil
}

func containsTask(affects []string, taskID string) bool {
	for _, id := range affects {
		if id == taskID {
			return true
		}
	}
	return false
}

// capPerType keeps only the latest N artifacts per artifact type,
// newest first (spec §4.6: "keeps latest N per artifact type, default N=5").
func capPerType(artifacts []domainartifact.Artifact, n int) []domainartifact.Artifact {
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
	counts := map[domainartifact.Type]int{}
	var out []domainartifact.Artifact
	for _, a := range artifacts {
		if counts[a.Type] >= n {
			continue
		}
		counts[a.Type]++
		out = append(out, a)
	}
	return out
}

// needFor inspects a dependent task's name/labels/description and emits
// the short natural-language "needs" line from spec §4.6's category rules.
func needFor(dep domaintask.Task) string {
	haystack := strings.ToLower(strings.Join(dep.Labels, " ") + " " + dep.Name + " " + dep.Description)
	switch {
	case strings.Contains(haystack, "test") || strings.Contains(haystack, "qa"):
		return fmt.Sprintf("%s needs documented endpoints with example requests/responses", dep.Name)
	case strings.Contains(haystack, "ui") || strings.Contains(haystack, "frontend"):
		return fmt.Sprintf("%s needs stable API contract + error shapes", dep.Name)
	case strings.Contains(haystack, "deploy") || strings.Contains(haystack, "release"):
		return fmt.Sprintf("%s needs passing tests + runbook", dep.Name)
	default:
		return fmt.Sprintf("%s needs clear interface definition", dep.Name)
	}
}

// SynthesizeInstructions turns a task plus its BuildResult into the
// natural-language instructions handed to the assigned agent (spec §4.6).
// It may call the external LanguageModel; with a null model, or an empty
// or failing completion, it degrades to the task description plus the
// context assembled in Build, never failing the assignment over an LLM
// outage (spec §9).
func (s *Service) SynthesizeInstructions(ctx context.Context, t domaintask.Task, result BuildResult) string {
	plain := plainInstructions(t, result)
	if s.model == nil {
		return plain
	}
	resp, err := s.model.Complete(ctx, portllm.CompletionRequest{
		SystemPrompt: "You write concise, actionable instructions for an autonomous coding agent picking up one task, given its description and the upstream/downstream context already gathered for it. Do not invent requirements beyond what is given.",
		Prompt:       instructionPrompt(t, result),
		MaxTokens:    600,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		return plain
	}
	return resp.Text
}

func instructionPrompt(t domaintask.Task, result BuildResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n%s\n", t.Name, t.Description)
	if len(result.UpstreamDecisions) > 0 {
		b.WriteString("\nUpstream decisions:\n")
		for _, d := range result.UpstreamDecisions {
			fmt.Fprintf(&b, "- %s\n", d.Text)
		}
	}
	if len(result.UpstreamArtifacts) > 0 {
		b.WriteString("\nUpstream artifacts:\n")
		for _, a := range result.UpstreamArtifacts {
			fmt.Fprintf(&b, "- %s (%s) at %s\n", a.Filename, a.Type, a.Location)
		}
	}
	if len(result.DependentNeeds) > 0 {
		b.WriteString("\nDownstream needs:\n")
		for _, n := range result.DependentNeeds {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}

// plainInstructions is the degrade path spec §9 requires when no
// LanguageModel is configured: the task description plus the §4.6
// context, with no natural-language rewriting.
func plainInstructions(t domaintask.Task, result BuildResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n", t.Name, t.Description)
	for _, d := range result.UpstreamDecisions {
		fmt.Fprintf(&b, "decision: %s\n", d.Text)
	}
	for _, a := range result.UpstreamArtifacts {
		fmt.Fprintf(&b, "artifact: %s (%s) at %s\n", a.Filename, a.Type, a.Location)
	}
	for _, n := range result.DependentNeeds {
		fmt.Fprintf(&b, "downstream: %s\n", n)
	}
	return b.String()
}

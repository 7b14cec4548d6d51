package contextbuilder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainartifact "github.com/marcusai/marcus/internal/domain/artifact"
	domaindecision "github.com/marcusai/marcus/internal/domain/decision"
	domaintask "github.com/marcusai/marcus/internal/domain/task"
	portllm "github.com/marcusai/marcus/internal/port/llm"
	. "github.com/marcusai/marcus/internal/service/contextbuilder"
)

type fakeModel struct {
	text string
	err  error
}

func (f *fakeModel) Complete(ctx context.Context, req portllm.CompletionRequest) (portllm.CompletionResponse, error) {
	if f.err != nil {
		return portllm.CompletionResponse{}, f.err
	}
	return portllm.CompletionResponse{Text: f.text}, nil
}

type fakeTasks struct {
	byID map[string]domaintask.Task
}

func (f *fakeTasks) Create(ctx context.Context, t domaintask.Task) (domaintask.Task, error) {
	return t, nil
}
func (f *fakeTasks) GetByID(ctx context.Context, id string) (domaintask.Task, error) {
	t, ok := f.byID[id]
	if !ok {
		return domaintask.Task{}, assertNotFound(id)
	}
	return t, nil
}
func (f *fakeTasks) List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error) {
	return nil, nil
}
func (f *fakeTasks) Update(ctx context.Context, t domaintask.Task) error { return nil }
func (f *fakeTasks) Delete(ctx context.Context, id string) error        { return nil }
func (f *fakeTasks) UpdateStatus(ctx context.Context, id string, from, to domaintask.Status) error {
	return nil
}

type notFoundErr struct{ id string }

func (e notFoundErr) Error() string { return "task not found: " + e.id }
func assertNotFound(id string) error { return notFoundErr{id} }

type fakeDecisions struct {
	all []domaindecision.Decision
}

func (f *fakeDecisions) Create(ctx context.Context, d domaindecision.Decision) (domaindecision.Decision, error) {
	return d, nil
}
func (f *fakeDecisions) List(ctx context.Context, filters domaindecision.ListFilters) ([]domaindecision.Decision, error) {
	return f.all, nil
}

type fakeArtifacts struct {
	byTask map[string][]domainartifact.Artifact
}

func (f *fakeArtifacts) Create(ctx context.Context, a domainartifact.Artifact) (domainartifact.Artifact, error) {
	return a, nil
}
func (f *fakeArtifacts) List(ctx context.Context, filters domainartifact.ListFilters) ([]domainartifact.Artifact, error) {
	if filters.TaskID == nil {
		return nil, nil
	}
	return f.byTask[*filters.TaskID], nil
}

type fakeGraph struct {
	preds map[string][]string
	deps  map[string][]string
}

func (g *fakeGraph) PredecessorsOf(projectID, taskID string) []string { return g.preds[taskID] }
func (g *fakeGraph) DependentsOf(projectID, taskID string) []string   { return g.deps[taskID] }

func TestBuildIncludesUpstreamFromDonePredecessorsOnly(t *testing.T) {
	ctx := context.Background()

	doneTask := domaintask.New("T1", "proj_1", "Design schema", "", domaintask.PriorityMedium, nil)
	doneTask.Status = domaintask.StatusDone
	inProgressTask := domaintask.New("T0", "proj_1", "Spike research", "", domaintask.PriorityMedium, nil)
	inProgressTask.Status = domaintask.StatusInProgress
	current := domaintask.New("T2", "proj_1", "Implement API", "", domaintask.PriorityMedium, []string{"T1", "T0"})

	tasks := &fakeTasks{byID: map[string]domaintask.Task{"T1": doneTask, "T0": inProgressTask, "T2": current}}
	decisions := &fakeDecisions{all: []domaindecision.Decision{
		domaindecision.New("D1", "T1", "agent_1", "use UUID keys", []string{"T2"}),
		domaindecision.New("D2", "T1", "agent_1", "unrelated note", []string{"T9"}),
	}}
	artifacts := &fakeArtifacts{byTask: map[string][]domainartifact.Artifact{
		"T1": {domainartifact.New("A1", "T1", "agent_1", "schema.sql", domainartifact.TypeDesign, "s3://x", "")},
	}}
	graph := &fakeGraph{preds: map[string][]string{"T2": {"T1", "T0"}}}

	svc := NewService(tasks, decisions, artifacts, graph, nil)
	result, err := svc.Build(ctx, "proj_1", current)
	require.NoError(t, err)

	require.Len(t, result.UpstreamDecisions, 1)
	assert.Equal(t, "D1", result.UpstreamDecisions[0].ID)
	require.Len(t, result.UpstreamArtifacts, 1)
	assert.Equal(t, "A1", result.UpstreamArtifacts[0].ID)
}

func TestBuildDependentNeedsClassifiesByLabel(t *testing.T) {
	ctx := context.Background()

	current := domaintask.New("T1", "proj_1", "Implement API", "", domaintask.PriorityMedium, nil)
	uiTask := domaintask.New("T2", "proj_1", "Build UI dashboard", "", domaintask.PriorityMedium, nil)
	uiTask.Labels = []string{"frontend"}
	qaTask := domaintask.New("T3", "proj_1", "QA regression pass", "", domaintask.PriorityMedium, nil)

	tasks := &fakeTasks{byID: map[string]domaintask.Task{"T1": current, "T2": uiTask, "T3": qaTask}}
	graph := &fakeGraph{deps: map[string][]string{"T1": {"T2", "T3"}}}
	svc := NewService(tasks, &fakeDecisions{}, &fakeArtifacts{}, graph, nil)

	result, err := svc.Build(ctx, "proj_1", current)
	require.NoError(t, err)
	require.Len(t, result.DependentNeeds, 2)
	assert.Contains(t, result.DependentNeeds[0], "stable API contract")
	assert.Contains(t, result.DependentNeeds[1], "documented endpoints")
}

func TestBuildCapsArtifactsPerType(t *testing.T) {
	ctx := context.Background()

	doneTask := domaintask.New("T1", "proj_1", "Design schema", "", domaintask.PriorityMedium, nil)
	doneTask.Status = domaintask.StatusDone
	current := domaintask.New("T2", "proj_1", "Implement API", "", domaintask.PriorityMedium, []string{"T1"})

	var many []domainartifact.Artifact
	for i := 0; i < 8; i++ {
		many = append(many, domainartifact.New("A", "T1", "agent_1", "f", domainartifact.TypeDesign, "loc", ""))
	}

	tasks := &fakeTasks{byID: map[string]domaintask.Task{"T1": doneTask, "T2": current}}
	artifacts := &fakeArtifacts{byTask: map[string][]domainartifact.Artifact{"T1": many}}
	graph := &fakeGraph{preds: map[string][]string{"T2": {"T1"}}}

	svc := NewService(tasks, &fakeDecisions{}, artifacts, graph, nil)
	result, err := svc.Build(ctx, "proj_1", current)
	require.NoError(t, err)
	assert.Len(t, result.UpstreamArtifacts, 5, "capPerType caps at 5 per artifact type")
}

func TestSynthesizeInstructionsDegradesWithNilModel(t *testing.T) {
	ctx := context.Background()
	task := domaintask.New("T1", "proj_1", "Implement API", "writes the handlers", domaintask.PriorityMedium, nil)
	svc := NewService(&fakeTasks{}, &fakeDecisions{}, &fakeArtifacts{}, &fakeGraph{}, nil)

	out := svc.SynthesizeInstructions(ctx, task, BuildResult{})
	assert.Contains(t, out, task.Name)
	assert.Contains(t, out, task.Description)
}

func TestSynthesizeInstructionsDegradesOnEmptyOrErroringModel(t *testing.T) {
	ctx := context.Background()
	task := domaintask.New("T1", "proj_1", "Implement API", "writes the handlers", domaintask.PriorityMedium, nil)

	svcEmpty := NewService(&fakeTasks{}, &fakeDecisions{}, &fakeArtifacts{}, &fakeGraph{}, &fakeModel{text: ""})
	out := svcEmpty.SynthesizeInstructions(ctx, task, BuildResult{})
	assert.Contains(t, out, task.Description)

	svcErr := NewService(&fakeTasks{}, &fakeDecisions{}, &fakeArtifacts{}, &fakeGraph{}, &fakeModel{err: assertNotFound("boom")})
	out = svcErr.SynthesizeInstructions(ctx, task, BuildResult{})
	assert.Contains(t, out, task.Description)
}

func TestSynthesizeInstructionsUsesModelOutput(t *testing.T) {
	ctx := context.Background()
	task := domaintask.New("T1", "proj_1", "Implement API", "writes the handlers", domaintask.PriorityMedium, nil)
	svc := NewService(&fakeTasks{}, &fakeDecisions{}, &fakeArtifacts{}, &fakeGraph{}, &fakeModel{text: "do the thing carefully"})

	out := svc.SynthesizeInstructions(ctx, task, BuildResult{})
	assert.Equal(t, "do the thing carefully", out)
}

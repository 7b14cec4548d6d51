// Package github implements board.Provider against GitHub Issues (spec
// §5): a project's board_id is "owner/repo", and tasks map to issues —
// title, labels, and open/closed state reconciled against Task.Status.
// Grounded on the teacher's adapter/github/client.go (oauth2 static
// token source wrapping go-github's HTTP client); generalized from pull
// request operations to the Issues API since Marcus's board abstraction
// is task cards, not code review.
package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/marcusai/marcus/internal/port/board"
)

type Provider struct {
	gh *github.Client
}

func New(token string) *Provider {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return &Provider{gh: github.NewClient(httpClient)}
}

func splitBoardID(boardID string) (owner, repo string, err error) {
	parts := strings.SplitN(boardID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("board_id %q must be of the form owner/repo", boardID)
	}
	return parts[0], parts[1], nil
}

func (p *Provider) ListTasks(ctx context.Context, boardID string) ([]board.Task, error) {
	owner, repo, err := splitBoardID(boardID)
	if err != nil {
		return nil, err
	}

	var out []board.Task
	opts := &github.IssueListByRepoOptions{State: "all", ListOptions: github.ListOptions{PerPage: 100}}
	for {
		issues, resp, err := p.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list issues for %s: %w", boardID, err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			out = append(out, issueToTask(issue))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (p *Provider) CreateTask(ctx context.Context, boardID string, t board.Task) (board.Task, error) {
	owner, repo, err := splitBoardID(boardID)
	if err != nil {
		return board.Task{}, err
	}
	issue, _, err := p.gh.Issues.Create(ctx, owner, repo, &github.IssueRequest{
		Title:  github.String(t.Title),
		Labels: &t.Labels,
	})
	if err != nil {
		return board.Task{}, fmt.Errorf("create issue in %s: %w", boardID, err)
	}
	return issueToTask(issue), nil
}

func (p *Provider) UpdateTaskStatus(ctx context.Context, boardID, taskBoardID, status string) error {
	owner, repo, err := splitBoardID(boardID)
	if err != nil {
		return err
	}
	number, err := issueNumber(taskBoardID)
	if err != nil {
		return err
	}
	state := "open"
	if status == "done" {
		state = "closed"
	}
	_, _, err = p.gh.Issues.Edit(ctx, owner, repo, number, &github.IssueRequest{State: github.String(state)})
	if err != nil {
		return fmt.Errorf("update issue %s state: %w", taskBoardID, err)
	}
	return nil
}

func (p *Provider) AddComment(ctx context.Context, boardID, taskBoardID, comment string) error {
	owner, repo, err := splitBoardID(boardID)
	if err != nil {
		return err
	}
	number, err := issueNumber(taskBoardID)
	if err != nil {
		return err
	}
	_, _, err = p.gh.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: github.String(comment)})
	if err != nil {
		return fmt.Errorf("comment on issue %s: %w", taskBoardID, err)
	}
	return nil
}

// AddChecklist appends a GitHub-flavored-markdown task list as a comment;
// GitHub issues have no native checklist field outside the issue body.
func (p *Provider) AddChecklist(ctx context.Context, boardID, taskBoardID string, items []string) error {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- [ ] ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return p.AddComment(ctx, boardID, taskBoardID, b.String())
}

func (p *Provider) ListProjects(ctx context.Context) ([]board.Project, error) {
	repos, _, err := p.gh.Repositories.List(ctx, "", &github.RepositoryListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	out := make([]board.Project, 0, len(repos))
	for _, r := range repos {
		out = append(out, board.Project{BoardID: r.GetFullName(), Name: r.GetName()})
	}
	return out, nil
}

func issueToTask(issue *github.Issue) board.Task {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}
	status := "todo"
	if issue.GetState() == "closed" {
		status = "done"
	}
	return board.Task{
		BoardID: fmt.Sprintf("%d", issue.GetNumber()),
		Title:   issue.GetTitle(),
		Labels:  labels,
		Status:  status,
	}
}

func issueNumber(taskBoardID string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(taskBoardID, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid issue number %q: %w", taskBoardID, err)
	}
	return n, nil
}

var _ board.Provider = (*Provider)(nil)

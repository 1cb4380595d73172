package syncdoc

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// GitHubStore is a DocumentStore backed by a file in a GitHub repository.
// Each save is a commit on the configured branch; the save message becomes
// the commit message.
type GitHubStore struct {
	client *github.Client
	owner  string
	repo   string
	path   string
	branch string

	sha string // content SHA from the last load, required by the update API
}

// GitHubStoreOpts holds parameters for creating a GitHubStore.
type GitHubStoreOpts struct {
	Token  string // personal access token with repo contents scope
	Repo   string // "owner/name"
	Path   string // file path within the repository
	Branch string // defaults to "main"
	// For testing: inject a client instead of building one from Token.
	Client *github.Client
}

// NewGitHubStore creates a GitHubStore.
func NewGitHubStore(ctx context.Context, opts GitHubStoreOpts) (*GitHubStore, error) {
	if opts.Client == nil && opts.Token == "" {
		return nil, fmt.Errorf("syncdoc: github token is required")
	}
	owner, repo, ok := strings.Cut(opts.Repo, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("syncdoc: github repo must be owner/name, got %q", opts.Repo)
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("syncdoc: github file path is required")
	}
	branch := opts.Branch
	if branch == "" {
		branch = "main"
	}

	client := opts.Client
	if client == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	}

	return &GitHubStore{
		client: client,
		owner:  owner,
		repo:   repo,
		path:   opts.Path,
		branch: branch,
	}, nil
}

// Load fetches the document from the repository and remembers its content
// SHA for the subsequent save.
func (g *GitHubStore) Load(ctx context.Context) (string, error) {
	fileContent, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, g.path,
		&github.RepositoryContentGetOptions{Ref: g.branch})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", g.path, err)
	}
	if fileContent == nil {
		return "", fmt.Errorf("%s is not a file", g.path)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", g.path, err)
	}
	g.sha = fileContent.GetSHA()
	return content, nil
}

// Save commits the updated document. Must follow a successful Load: the
// GitHub contents API requires the SHA of the version being replaced.
func (g *GitHubStore) Save(ctx context.Context, content, message string) error {
	if g.sha == "" {
		return fmt.Errorf("save before load: no content SHA")
	}
	_, _, err := g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, g.path,
		&github.RepositoryContentFileOptions{
			Message: github.Ptr(message),
			Content: []byte(content),
			SHA:     github.Ptr(g.sha),
			Branch:  github.Ptr(g.branch),
		})
	if err != nil {
		return fmt.Errorf("update %s: %w", g.path, err)
	}
	return nil
}

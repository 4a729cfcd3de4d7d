package source

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"

	"github.com/bull/legal-rag/internal/domain"
)

// GitHubClient wraps the GitHub API client with rate limiting support.
type GitHubClient struct {
	*github.Client
}

// NewGitHubClient creates a GitHub client that waits out primary and
// secondary rate limits. An empty token gives an anonymous client.
func NewGitHubClient(token string) (*GitHubClient, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}
	return &GitHubClient{Client: ghClient}, nil
}

// GitHubFetcher reads legal documents from a directory of a repository.
type GitHubFetcher struct {
	client   *GitHubClient
	owner    string
	repo     string
	basePath string
	ref      string
	exts     []string
}

// NewGitHubFetcher creates a fetcher for owner/repo under basePath.
// An empty ref reads the default branch.
func NewGitHubFetcher(client *GitHubClient, owner, repo, basePath, ref string) *GitHubFetcher {
	return &GitHubFetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: strings.Trim(basePath, "/"),
		ref:      ref,
		exts:     DefaultExtensions,
	}
}

func (f *GitHubFetcher) options() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

// List recursively lists supported files under the base path, relative to it.
func (f *GitHubFetcher) List(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.basePath, "")
}

func (f *GitHubFetcher) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.options())
	if err != nil {
		return nil, fmt.Errorf("get contents of %s: %w", fullPath, err)
	}

	var files []string
	for _, item := range dirContents {
		name := item.GetName()
		if name == "" {
			continue
		}
		itemRelPath := path.Join(relativePath, name)

		switch item.GetType() {
		case "file":
			if hasExtension(name, f.exts) {
				files = append(files, itemRelPath)
			}
		case "dir":
			sub, err := f.listRecursive(ctx, path.Join(fullPath, name), itemRelPath)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		}
	}
	return files, nil
}

// Fetch downloads one file, relative to the base path, as a Document.
func (f *GitHubFetcher) Fetch(ctx context.Context, relativePath string) (domain.Document, error) {
	fullPath := path.Join(f.basePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.options())
	if err != nil {
		return domain.Document{}, fmt.Errorf("get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return domain.Document{}, fmt.Errorf("no file content returned for %s", fullPath)
	}

	// Files over 1MB come back without inline content.
	var content []byte
	if fileContent.GetEncoding() == "base64" {
		decoded, err := fileContent.GetContent()
		if err != nil {
			return domain.Document{}, fmt.Errorf("decode content of %s: %w", fullPath, err)
		}
		content = []byte(decoded)
	} else {
		content, err = f.download(ctx, fullPath)
		if err != nil {
			return domain.Document{}, err
		}
	}

	return domain.NewDocument(path.Base(relativePath), content), nil
}

func (f *GitHubFetcher) download(ctx context.Context, fullPath string) ([]byte, error) {
	rc, _, err := f.client.Repositories.DownloadContents(ctx, f.owner, f.repo, fullPath, f.options())
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fullPath, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fullPath, err)
	}
	return content, nil
}

// FetchAll lists and fetches every supported file. Files that fail to
// download are reported through skipped and left out.
func (f *GitHubFetcher) FetchAll(ctx context.Context) (docs []domain.Document, skipped map[string]error, err error) {
	paths, err := f.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	skipped = map[string]error{}
	for _, p := range paths {
		doc, err := f.Fetch(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			skipped[p] = err
			continue
		}
		docs = append(docs, doc)
	}
	return docs, skipped, nil
}

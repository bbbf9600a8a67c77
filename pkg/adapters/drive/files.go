package drive

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// FolderMimeType marks Drive files that are folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// Credentials are the OAuth client and user tokens for a Drive account.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
}

// files is the slice of the Drive Files API the store relies on.
type files interface {
	list(ctx context.Context, q, pageToken string) (*drive.FileList, error)
	create(ctx context.Context, meta *drive.File, content io.Reader) (*drive.File, error)
	update(ctx context.Context, id string, content io.Reader) error
	download(ctx context.Context, id string) ([]byte, error)
}

// NewDriveService creates a Drive client whose token refreshes from creds.
func NewDriveService(ctx context.Context, creds Credentials) (*drive.Service, error) {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}
	srv, err := drive.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return srv, nil
}

// serviceFiles adapts *drive.Service to files.
type serviceFiles struct {
	srv *drive.Service
}

func (f serviceFiles) list(ctx context.Context, q, pageToken string) (*drive.FileList, error) {
	call := f.srv.Files.List().
		Q(q).
		Fields("nextPageToken, files(id, name, mimeType, parents)").
		OrderBy("createdTime").
		PageSize(100).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

func (f serviceFiles) create(ctx context.Context, meta *drive.File, content io.Reader) (*drive.File, error) {
	call := f.srv.Files.Create(meta).Fields("id").Context(ctx)
	if content != nil {
		call = call.Media(content)
	}
	return call.Do()
}

func (f serviceFiles) update(ctx context.Context, id string, content io.Reader) error {
	_, err := f.srv.Files.Update(id, &drive.File{}).Media(content).Fields("id").Context(ctx).Do()
	return err
}

func (f serviceFiles) download(ctx context.Context, id string) ([]byte, error) {
	resp, err := f.srv.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

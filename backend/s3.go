package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/resource"
)

// S3Backend fetches/puts a single catalogue snapshot object in S3,
// grounded directly on api/snap.go's session.Must(session.NewSession())
// + s3manager.NewDownloader/svc.PutObjectWithContext pattern, the
// registry's second backend alongside FSBackend.
type S3Backend struct {
	Bucket string
	Key    string
	Region string

	frames *refframe.Registry

	session *session.Session
}

// NewS3Backend dials an AWS session scoped to region (the AWS SDK's
// usual environment-variable credential chain applies, as in
// api/snap.go).
func NewS3Backend(bucket, key, region string, frames *refframe.Registry) (*S3Backend, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("dialing AWS session: %w", err)
	}
	return &S3Backend{Bucket: bucket, Key: key, Region: region, frames: frames, session: sess}, nil
}

type snapshotDoc struct {
	Resources []resourceDoc `json:"resources"`
	Errors    map[string]struct {
		Time  time.Time `json:"time"`
		Error string    `json:"error"`
	} `json:"errors,omitempty"`
}

// LoadCatalogue downloads the snapshot object and parses every entry.
// A missing object (bucket not yet seeded) is an empty catalogue, not
// an error.
func (b *S3Backend) LoadCatalogue(ctx context.Context) ([]resource.Resource, error) {
	raw, err := b.download(ctx)
	if err != nil {
		return nil, err
	}
	var snap snapshotDoc
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("parsing catalogue snapshot: %w", err)
		}
	}

	out := make([]resource.Resource, 0, len(snap.Resources))
	for _, d := range snap.Resources {
		r, err := d.toResource(b.frames, resource.NewDefinition(d.Definition))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ReportPrepareError fetches the snapshot, records the failure against
// id, and puts it back. api/snap.go's StoreSnaps idiom uploads one
// object per track; a catalogue is small enough to round-trip whole.
func (b *S3Backend) ReportPrepareError(ctx context.Context, id resource.ID, cause error) error {
	raw, err := b.download(ctx)
	if err != nil {
		return err
	}
	var snap snapshotDoc
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("parsing catalogue snapshot: %w", err)
		}
	}
	if snap.Errors == nil {
		snap.Errors = map[string]struct {
			Time  time.Time `json:"time"`
			Error string    `json:"error"`
		}{}
	}
	snap.Errors[id.String()] = struct {
		Time  time.Time `json:"time"`
		Error string    `json:"error"`
	}{Time: time.Now().UTC(), Error: cause.Error()}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return b.upload(ctx, body)
}

// SaveCatalogue replaces the whole snapshot object, preserving any
// accumulated error reports. Used by a caller that wants S3 as its
// sole catalogue store rather than a mirror of FSBackend.
func (b *S3Backend) SaveCatalogue(ctx context.Context, resources []resource.Resource) error {
	raw, err := b.download(ctx)
	if err != nil {
		return err
	}
	var snap snapshotDoc
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("parsing catalogue snapshot: %w", err)
		}
	}
	snap.Resources = make([]resourceDoc, 0, len(resources))
	for _, r := range resources {
		snap.Resources = append(snap.Resources, docFromResource(r))
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return b.upload(ctx, body)
}

func (b *S3Backend) download(ctx context.Context) ([]byte, error) {
	buf := &aws.WriteAtBuffer{}
	downloader := s3manager.NewDownloaderWithClient(s3.New(b.session))
	_, err := downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(b.Key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("downloading catalogue snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *S3Backend) upload(ctx context.Context, body []byte) error {
	svc := s3.New(b.session)
	_, err := svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.Bucket),
		Key:           aws.String(b.Key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("uploading catalogue snapshot: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var rf awserr.RequestFailure
	if errors.As(err, &rf) {
		return rf.StatusCode() == 404
	}
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == s3.ErrCodeNoSuchKey
	}
	return false
}

// Package service is the orchestration layer: everything the HTTP
// handlers may do to apps goes through here.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	registryname "github.com/google/go-containerregistry/pkg/name"
	"github.com/google/uuid"

	"github.com/1800agents/saki/pkg/domain"
	"github.com/1800agents/saki/pkg/domain/apps"
	"github.com/1800agents/saki/pkg/domain/apps/codec"
	"github.com/1800agents/saki/pkg/domain/apps/logs"
	"github.com/1800agents/saki/pkg/domain/auth"
	kerr "github.com/1800agents/saki/pkg/domain/errors"
	"github.com/1800agents/saki/pkg/domain/schema"
	"github.com/1800agents/saki/pkg/xerrors"
)

const (
	maxNameLength        = 63
	maxDescriptionLength = 300

	requiredTagLength = 7
	pushTokenBytes    = 16

	containerPort = "8080"
)

var (
	reAppName     = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	reRequiredTag = regexp.MustCompile(`^[0-9a-f]{7}$`)
)

// AppSpec is what a caller submits to deploy an app.
type AppSpec struct {
	Name        string
	Description string
	Image       string
}

type Service interface {
	// PreparePush reserves a registry namespace for one push: the
	// repository the caller must push to, a short-lived credential,
	// and the tag the subsequent deploy must reference.
	PreparePush(ctx context.Context, who auth.Identity, name string, gitCommit string) (domain.PushGrant, error)

	// UpsertApp deploys an app, creating it or replacing the running
	// deployment. Identity is write-once: app id and deployment id are
	// minted on first creation and survive every redeploy.
	UpsertApp(ctx context.Context, who auth.Identity, spec AppSpec) (domain.AppRecord, error)

	// ListApps returns the caller's apps; with all set (admins only),
	// every app of the control plane.
	ListApps(ctx context.Context, who auth.Identity, all bool) ([]domain.AppRecord, error)

	// GetApp returns one app of the caller. Another owner's app is
	// indistinguishable from a nonexistent one.
	GetApp(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error)

	StopApp(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error)
	StartApp(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error)

	// DeleteApp removes the app's objects, then its database schema.
	DeleteApp(ctx context.Context, who auth.Identity, name string) error

	// Logs reads one page of the app's log.
	Logs(ctx context.Context, who auth.Identity, name string, cursor string, limit int) (domain.LogPage, error)
}

// Config is the static shape of the world this service deploys into.
type Config struct {
	// BaseDomain is the apex under which app hostnames live.
	BaseDomain string

	// RegistryHost is the image registry callers push to.
	RegistryHost string

	// DatabaseURL is the shared database; apps get a schema each.
	DatabaseURL string

	// TTL is how long an app lives past its latest deploy.
	TTL time.Duration

	// PushWindow is how long a push credential stays valid.
	PushWindow time.Duration
}

type service struct {
	store  apps.WorkloadStore
	logs   logs.Reader
	schema schema.Provisioner
	conf   Config

	now   func() time.Time
	newID func() string
}

var _ Service = &service{}

func New(store apps.WorkloadStore, logReader logs.Reader, provisioner schema.Provisioner, conf Config) Service {
	return &service{
		store:  store,
		logs:   logReader,
		schema: provisioner,
		conf:   conf,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func validateName(name string) error {
	if name == "" || maxNameLength < len(name) || !reAppName.MatchString(name) {
		return kerr.NewInvalidInput(
			"app name must be a DNS-safe slug of at most 63 characters: " + name,
		)
	}
	return nil
}

// repositoryFor is the registry namespace of one app. Owners are
// normalized the same way label values are, so an email-shaped owner
// still yields a valid repository path.
func (s *service) repositoryFor(owner string, name string) string {
	return s.conf.RegistryHost + "/" + codec.LabelValue(owner) + "/" + name
}

func (s *service) PreparePush(ctx context.Context, who auth.Identity, name string, gitCommit string) (domain.PushGrant, error) {
	if err := validateName(name); err != nil {
		return domain.PushGrant{}, err
	}

	if len(gitCommit) < requiredTagLength {
		return domain.PushGrant{}, kerr.NewInvalidInput(
			"git commit is too short to derive a tag: " + gitCommit,
		)
	}
	tag := strings.ToLower(gitCommit[:requiredTagLength])
	if !reRequiredTag.MatchString(tag) {
		return domain.PushGrant{}, kerr.NewInvalidInput(
			"git commit is not a hex revision: " + gitCommit,
		)
	}

	token := make([]byte, pushTokenBytes)
	if _, err := rand.Read(token); err != nil {
		return domain.PushGrant{}, xerrors.Wrap(err)
	}

	return domain.PushGrant{
		Repository:  s.repositoryFor(who.Owner, name),
		PushToken:   hex.EncodeToString(token),
		ExpiresAt:   s.now().Add(s.conf.PushWindow),
		RequiredTag: tag,
	}, nil
}

func (s *service) UpsertApp(ctx context.Context, who auth.Identity, spec AppSpec) (domain.AppRecord, error) {
	if err := validateName(spec.Name); err != nil {
		return domain.AppRecord{}, err
	}
	if maxDescriptionLength < len(spec.Description) {
		return domain.AppRecord{}, kerr.NewInvalidInput(
			"description exceeds 300 characters",
		)
	}

	if _, err := registryname.ParseReference(spec.Image); err != nil {
		return domain.AppRecord{}, kerr.NewInvalidInputCausedBy(
			"image reference does not parse: "+spec.Image, err,
		)
	}
	if prefix := s.repositoryFor(who.Owner, spec.Name) + ":"; !strings.HasPrefix(spec.Image, prefix) {
		return domain.AppRecord{}, kerr.NewNamespaceViolation(
			"image " + spec.Image + " is outside the app's registry namespace " + prefix + "...",
		)
	}

	now := s.now()
	r := domain.AppRecord{
		AppID:        s.newID(),
		DeploymentID: s.newID(),
		Owner:        who.Owner,
		Name:         spec.Name,
		Description:  spec.Description,
		Image:        spec.Image,
		URL:          "https://" + spec.Name + "." + s.conf.BaseDomain,
		Status:       domain.Deploying,
		CreatedAt:    now,
		UpdatedAt:    now,
		TTLExpiry:    now.Add(s.conf.TTL),
	}

	// a redeploy keeps the app's identity: both ids are write-once and
	// ride along from the existing record.
	existing, err := s.store.FindByOwnerAndName(ctx, who.Owner, spec.Name)
	if err != nil {
		return domain.AppRecord{}, err
	}
	if existing != nil {
		r.AppID = existing.AppID
		r.DeploymentID = existing.DeploymentID
		r.CreatedAt = existing.CreatedAt
	}

	// the schema must exist before the workload starts; the container
	// gets its connection string on first boot.
	if err := s.schema.EnsureSchema(ctx, r.AppID); err != nil {
		return domain.AppRecord{}, err
	}

	return s.store.Upsert(ctx, apps.Workload{
		Record: r,
		Host:   spec.Name + "." + s.conf.BaseDomain,
		Env: map[string]string{
			"PORT":         containerPort,
			"DATABASE_URL": s.databaseURLFor(r.AppID),
		},
	})
}

func (s *service) databaseURLFor(appID string) string {
	sep := "?"
	if strings.Contains(s.conf.DatabaseURL, "?") {
		sep = "&"
	}
	return s.conf.DatabaseURL + sep + "search_path=" + schema.Name(appID)
}

func (s *service) ListApps(ctx context.Context, who auth.Identity, all bool) ([]domain.AppRecord, error) {
	if !all {
		return s.store.ListByOwner(ctx, who.Owner)
	}
	if !who.Admin {
		return nil, kerr.NewForbidden("listing every app requires admin scope")
	}
	return s.store.ListAll(ctx)
}

func (s *service) GetApp(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error) {
	r, err := s.store.FindByOwnerAndName(ctx, who.Owner, name)
	if err != nil {
		return domain.AppRecord{}, err
	}
	if r == nil {
		return domain.AppRecord{}, kerr.NewMissing(
			"no app " + name + " for owner " + who.Owner,
		)
	}
	return *r, nil
}

func (s *service) StopApp(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error) {
	return s.store.SetReplicas(ctx, who.Owner, name, 0)
}

func (s *service) StartApp(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error) {
	return s.store.SetReplicas(ctx, who.Owner, name, 1)
}

func (s *service) DeleteApp(ctx context.Context, who auth.Identity, name string) error {
	r, err := s.GetApp(ctx, who, name)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, who.Owner, name); err != nil {
		return err
	}

	// objects are gone at this point. A failing drop leaves an orphan
	// schema and surfaces the error; the delete itself is not undone.
	return s.schema.DropSchema(ctx, r.AppID)
}

func (s *service) Logs(ctx context.Context, who auth.Identity, name string, cursor string, limit int) (domain.LogPage, error) {
	r, err := s.GetApp(ctx, who, name)
	if err != nil {
		return domain.LogPage{}, err
	}
	return s.logs.Read(ctx, r.AppID, cursor, limit)
}

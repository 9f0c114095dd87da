// Package logs reads app logs from the pods behind a workload object.
//
// There is no persistent log store: each read tails a window of the
// live container log and pages inside that window. Cursors are only
// meaningful within the window they were issued for.
package logs

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	kubecore "k8s.io/api/core/v1"

	"github.com/1800agents/saki/pkg/cluster"
	"github.com/1800agents/saki/pkg/domain"
	"github.com/1800agents/saki/pkg/domain/apps/codec"
	"github.com/1800agents/saki/pkg/xerrors"
)

const (
	containerName = "app"

	// tailWindow is how far back a read reaches, in lines.
	tailWindow = 5000

	DefaultLimit = 100
	MaxLimit     = 1000
)

type Reader interface {
	// Read returns one page of the app's log.
	//
	// An absent or undecodable cursor starts at the top of the tail
	// window. The returned page carries the next cursor, or nil at
	// the window end. A cursor beyond the window yields an empty page.
	Read(ctx context.Context, appID string, cursor string, limit int) (domain.LogPage, error)
}

type reader struct {
	cluster cluster.Cluster
	now     func() time.Time
}

var _ Reader = &reader{}

func New(c cluster.Cluster) Reader {
	return &reader{cluster: c, now: time.Now}
}

func (l *reader) Read(ctx context.Context, appID string, cursor string, limit int) (domain.LogPage, error) {
	// an invalid or absent cursor reads from the top of the window.
	offset := 0
	if n, err := strconv.Atoi(cursor); err == nil && 0 <= n {
		offset = n
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if MaxLimit < limit {
		limit = MaxLimit
	}

	pods, err := l.cluster.Client().FindPods(
		ctx, l.cluster.Namespace(),
		cluster.LabelSelector(codec.AppIDSelector(appID)),
	)
	if err != nil {
		return domain.LogPage{}, xerrors.Wrap(err)
	}

	pod := pickPod(pods)
	if pod == nil {
		// no pods means no log yet, not an error: the app may still
		// be rolling out its first pod.
		return domain.LogPage{Lines: []domain.LogLine{}}, nil
	}

	lines, err := l.tail(ctx, pod.Name)
	if err != nil {
		return domain.LogPage{}, err
	}

	return paginate(lines, offset, limit), nil
}

// pickPod chooses the pod to read from: the first running one, or
// failing that, the most recently started.
func pickPod(pods []kubecore.Pod) *kubecore.Pod {
	if len(pods) == 0 {
		return nil
	}

	for i := range pods {
		if pods[i].Status.Phase == kubecore.PodRunning {
			return &pods[i]
		}
	}

	latest := &pods[0]
	for i := range pods[1:] {
		p := &pods[i+1]
		if latest.Status.StartTime == nil {
			latest = p
			continue
		}
		if p.Status.StartTime != nil && latest.Status.StartTime.Time.Before(p.Status.StartTime.Time) {
			latest = p
		}
	}
	return latest
}

func (l *reader) tail(ctx context.Context, podname string) ([]domain.LogLine, error) {
	opts := cluster.LogOptions{
		Container:  containerName,
		TailLines:  tailWindow,
		Timestamps: true,
	}

	stream, err := l.cluster.Client().Log(ctx, l.cluster.Namespace(), podname, opts)
	if err != nil {
		// a pod not built by this control plane may name its container
		// differently; fall back to the pod's default container.
		opts.Container = ""
		stream, err = l.cluster.Client().Log(ctx, l.cluster.Namespace(), podname, opts)
		if err != nil {
			return nil, xerrors.Wrap(err)
		}
	}
	defer stream.Close()

	raw, err := io.ReadAll(stream)
	if err != nil {
		return nil, xerrors.Wrap(err)
	}

	return l.parse(string(raw)), nil
}

// parse splits a timestamped log dump into non-empty trimmed lines.
// Each line is "<RFC3339Nano> <message>"; lines that do not parse keep
// their full text and are stamped with the wall clock.
func (l *reader) parse(raw string) []domain.LogLine {
	lines := []domain.LogLine{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		stamp, message, found := strings.Cut(line, " ")
		if found {
			if t, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
				lines = append(lines, domain.LogLine{
					Timestamp: t, Stream: "stdout", Message: message,
				})
				continue
			}
		}

		lines = append(lines, domain.LogLine{
			Timestamp: l.now(), Stream: "stdout", Message: line,
		})
	}
	return lines
}

func paginate(lines []domain.LogLine, offset int, limit int) domain.LogPage {
	if len(lines) <= offset {
		return domain.LogPage{Lines: []domain.LogLine{}}
	}

	end := offset + limit
	if len(lines) < end {
		end = len(lines)
	}

	page := domain.LogPage{Lines: lines[offset:end]}
	if end < len(lines) {
		next := strconv.Itoa(end)
		page.NextCursor = &next
	}
	return page
}

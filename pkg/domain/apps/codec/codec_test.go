package codec_test

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/1800agents/saki/pkg/domain"
	"github.com/1800agents/saki/pkg/domain/apps/codec"
	kerr "github.com/1800agents/saki/pkg/domain/errors"
)

func TestLabelValue(t *testing.T) {
	type When struct {
		input string
	}
	type Then struct {
		value string
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			actual := codec.LabelValue(when.input)
			if actual != then.value {
				t.Errorf("mismatch. (actual, expected) = (%s, %s)", actual, then.value)
			}
		}
	}

	t.Run("a plain value passes through", theory(
		When{input: "alice"}, Then{value: "alice"},
	))
	t.Run("upper case is lowered", theory(
		When{input: "Alice@Example.COM"}, Then{value: "alice-example.com"},
	))
	t.Run("an empty value maps to the placeholder", theory(
		When{input: ""}, Then{value: "x"},
	))
	t.Run("an all-symbol value maps to the placeholder", theory(
		When{input: "@@@"}, Then{value: "x"},
	))
	t.Run("edge separators are trimmed", theory(
		When{input: ".hidden-"}, Then{value: "hidden"},
	))
	t.Run("long values are cut at 63", theory(
		When{input: strings.Repeat("a", 80)}, Then{value: strings.Repeat("a", 63)},
	))

	t.Run("the result is always label-syntax safe", func(t *testing.T) {
		re := regexp.MustCompile(`^[a-z0-9]([a-z0-9\-._]*[a-z0-9])?$`)
		for _, input := range []string{
			"", "-", "...", "UPPER", "µ-service", "a b c", strings.Repeat("-x", 60),
			"trailing.", "日本語",
		} {
			got := codec.LabelValue(input)
			if !re.MatchString(got) || 63 < len(got) {
				t.Errorf("LabelValue(%q) = %q is not a valid label value", input, got)
			}
		}
	})
}

func record() domain.AppRecord {
	return domain.AppRecord{
		AppID:        "0193b2f0-4b7e-7f7e-8a3c-9a4f6d2e1c00",
		DeploymentID: "0193b2f0-5555-7f7e-8a3c-9a4f6d2e1c11",
		Owner:        "alice@example.com",
		Name:         "my-app",
		Description:  "a demo app",
		Image:        "registry.saki.dev/alice@example.com/my-app:abc1234",
		URL:          "https://my-app.apps.saki.dev",
		Status:       domain.Healthy,
		CreatedAt:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC),
		TTLExpiry:    time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC),
	}
}

func TestAnnotations_RoundTrip(t *testing.T) {
	r := record()

	decoded, err := codec.Decode(codec.Annotations(r), "")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !decoded.Equal(r) {
		t.Errorf("round trip mismatch. (decoded, original) = (%+v, %+v)", decoded, r)
	}
}

func TestAnnotations_AlwaysPopulateRequiredKeys(t *testing.T) {
	// encode must never leave decode guessing, even for zero-ish records.
	r := domain.AppRecord{
		AppID:        "id",
		DeploymentID: "dep",
		Owner:        "o",
		Name:         "n",
	}
	annotations := codec.Annotations(r)

	for _, key := range []string{
		codec.AnnotAppID, codec.AnnotDeploymentID, codec.AnnotOwner,
		codec.AnnotName, codec.AnnotCreatedAt, codec.AnnotUpdatedAt,
		codec.AnnotTTLExpiry, codec.AnnotStatus,
	} {
		if _, ok := annotations[key]; !ok {
			t.Errorf("annotation %s is not populated", key)
		}
	}
}

func TestDecode(t *testing.T) {
	type When struct {
		mutate        func(map[string]string)
		fallbackImage string
	}
	type Then struct {
		incomplete bool
		image      string
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			annotations := codec.Annotations(record())
			when.mutate(annotations)

			decoded, err := codec.Decode(annotations, when.fallbackImage)

			if then.incomplete {
				if !kerr.AsIncompleteRecord(err) {
					t.Errorf("expected ErrIncompleteRecord, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if decoded.Image != then.image {
				t.Errorf("image mismatch. (actual, expected) = (%s, %s)", decoded.Image, then.image)
			}
		}
	}

	t.Run("a full annotation set decodes", theory(
		When{mutate: func(m map[string]string) {}},
		Then{image: record().Image},
	))

	t.Run("a missing app id is incomplete", theory(
		When{mutate: func(m map[string]string) { delete(m, codec.AnnotAppID) }},
		Then{incomplete: true},
	))
	t.Run("a missing deployment id is incomplete", theory(
		When{mutate: func(m map[string]string) { delete(m, codec.AnnotDeploymentID) }},
		Then{incomplete: true},
	))
	t.Run("a missing owner is incomplete", theory(
		When{mutate: func(m map[string]string) { delete(m, codec.AnnotOwner) }},
		Then{incomplete: true},
	))
	t.Run("a missing name is incomplete", theory(
		When{mutate: func(m map[string]string) { delete(m, codec.AnnotName) }},
		Then{incomplete: true},
	))
	t.Run("a malformed created-at is incomplete", theory(
		When{mutate: func(m map[string]string) { m[codec.AnnotCreatedAt] = "yesterday" }},
		Then{incomplete: true},
	))

	t.Run("a missing image falls back to the running container", theory(
		When{
			mutate:        func(m map[string]string) { delete(m, codec.AnnotImage) },
			fallbackImage: "registry.saki.dev/alice/my-app:live",
		},
		Then{image: "registry.saki.dev/alice/my-app:live"},
	))

	t.Run("a missing description is tolerated", theory(
		When{mutate: func(m map[string]string) { delete(m, codec.AnnotDescription) }},
		Then{image: record().Image},
	))
}

func TestSelectors(t *testing.T) {
	r := record()

	labels := codec.Labels(r)

	for name, selector := range map[string]map[string]string{
		"managed":  codec.ManagedSelector(),
		"owner":    codec.OwnerSelector(r.Owner),
		"identity": codec.IdentitySelector(r.Owner, r.Name),
		"app id":   codec.AppIDSelector(r.AppID),
	} {
		for k, v := range selector {
			if labels[k] != v {
				t.Errorf(
					"%s selector does not match encoded labels: label %s = %s, selector wants %s",
					name, k, labels[k], v,
				)
			}
		}
	}
}

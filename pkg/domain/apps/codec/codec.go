// Package codec maps AppRecords onto the label/annotation set stored
// on the workload object.
//
// The annotation set is the persisted form of an app: there is no
// database row backing it. Keys here are a wire format and must not
// change without a migration story.
package codec

import (
	"regexp"
	"strings"
	"time"

	"github.com/1800agents/saki/pkg/domain"
	kerr "github.com/1800agents/saki/pkg/domain/errors"
)

const (
	// selector labels. Values are normalized (label syntax is
	// restricted); the full values live in annotations.
	LabelManagedBy = "app.kubernetes.io/managed-by"
	LabelOwner     = "saki.dev/owner"
	LabelName      = "saki.dev/name"
	LabelAppID     = "saki.dev/app-id"

	// ManagedByValue marks objects owned by this control plane.
	ManagedByValue = "saki"

	AnnotAppID        = "saki.dev/app-id"
	AnnotDeploymentID = "saki.dev/deployment-id"
	AnnotOwner        = "saki.dev/owner"
	AnnotName         = "saki.dev/name"
	AnnotDescription  = "saki.dev/description"
	AnnotURL          = "saki.dev/url"
	AnnotImage        = "saki.dev/image"
	AnnotCreatedAt    = "saki.dev/created-at"
	AnnotUpdatedAt    = "saki.dev/updated-at"
	AnnotTTLExpiry    = "saki.dev/ttl-expiry"
	AnnotStatus       = "saki.dev/status"

	// placeholder for label values which normalize to nothing.
	// The cluster rejects empty label values in selectors.
	emptyLabelPlaceholder = "x"

	maxLabelValueLength = 63

	timeFormat = time.RFC3339Nano
)

var reLabelDisallowed = regexp.MustCompile(`[^a-z0-9\-._]+`)

// LabelValue normalizes an arbitrary string into a valid label value:
// lower-cased, disallowed runes replaced by "-", at most 63 characters,
// alphanumeric at both ends. Empty results map to a fixed placeholder.
func LabelValue(s string) string {
	v := strings.ToLower(s)
	v = reLabelDisallowed.ReplaceAllString(v, "-")
	v = strings.Trim(v, "-._")

	if maxLabelValueLength < len(v) {
		v = v[:maxLabelValueLength]
		v = strings.TrimRight(v, "-._")
	}

	if v == "" {
		return emptyLabelPlaceholder
	}
	return v
}

// Labels are the selector/identity labels of a record.
func Labels(r domain.AppRecord) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelOwner:     LabelValue(r.Owner),
		LabelName:      LabelValue(r.Name),
		LabelAppID:     LabelValue(r.AppID),
	}
}

// ManagedSelector matches every object of this control plane.
func ManagedSelector() map[string]string {
	return map[string]string{LabelManagedBy: ManagedByValue}
}

// OwnerSelector matches every object of one owner.
func OwnerSelector(owner string) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelOwner:     LabelValue(owner),
	}
}

// IdentitySelector matches the objects of one (owner, name) pair.
// At most one app may match; more is a consistency violation.
func IdentitySelector(owner string, name string) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelOwner:     LabelValue(owner),
		LabelName:      LabelValue(name),
	}
}

// AppIDSelector matches the objects of one app id.
func AppIDSelector(appID string) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelAppID:     LabelValue(appID),
	}
}

// Annotations carry the record fields in full, unnormalized.
func Annotations(r domain.AppRecord) map[string]string {
	return map[string]string{
		AnnotAppID:        r.AppID,
		AnnotDeploymentID: r.DeploymentID,
		AnnotOwner:        r.Owner,
		AnnotName:         r.Name,
		AnnotDescription:  r.Description,
		AnnotURL:          r.URL,
		AnnotImage:        r.Image,
		AnnotCreatedAt:    r.CreatedAt.UTC().Format(timeFormat),
		AnnotUpdatedAt:    r.UpdatedAt.UTC().Format(timeFormat),
		AnnotTTLExpiry:    r.TTLExpiry.UTC().Format(timeFormat),
		AnnotStatus:       string(r.Status),
	}
}

// Decode rebuilds an AppRecord from an annotation set.
//
// fallbackImage is the image reference of the running container; it is
// used when the image annotation is absent (objects written by older
// control planes).
//
// A missing required annotation yields ErrIncompleteRecord: the object
// does not represent a valid app and is skipped by listings.
func Decode(annotations map[string]string, fallbackImage string) (domain.AppRecord, error) {
	r := domain.AppRecord{}

	var ok bool
	if r.AppID, ok = annotations[AnnotAppID]; !ok || r.AppID == "" {
		return domain.AppRecord{}, kerr.NewIncompleteRecord("annotation missing: " + AnnotAppID)
	}
	if r.DeploymentID, ok = annotations[AnnotDeploymentID]; !ok || r.DeploymentID == "" {
		return domain.AppRecord{}, kerr.NewIncompleteRecord("annotation missing: " + AnnotDeploymentID)
	}
	if r.Owner, ok = annotations[AnnotOwner]; !ok || r.Owner == "" {
		return domain.AppRecord{}, kerr.NewIncompleteRecord("annotation missing: " + AnnotOwner)
	}
	if r.Name, ok = annotations[AnnotName]; !ok || r.Name == "" {
		return domain.AppRecord{}, kerr.NewIncompleteRecord("annotation missing: " + AnnotName)
	}

	r.Description = annotations[AnnotDescription]
	r.URL = annotations[AnnotURL]
	r.Status = domain.Status(annotations[AnnotStatus])

	r.Image = annotations[AnnotImage]
	if r.Image == "" {
		r.Image = fallbackImage
	}

	var err error
	if r.CreatedAt, err = parseTime(annotations, AnnotCreatedAt); err != nil {
		return domain.AppRecord{}, err
	}
	if r.UpdatedAt, err = parseTime(annotations, AnnotUpdatedAt); err != nil {
		return domain.AppRecord{}, err
	}

	if raw, ok := annotations[AnnotTTLExpiry]; ok && raw != "" {
		t, err := time.Parse(timeFormat, raw)
		if err != nil {
			return domain.AppRecord{}, kerr.NewIncompleteRecord(
				"annotation malformed: " + AnnotTTLExpiry + " = " + raw,
			)
		}
		r.TTLExpiry = t
	}

	return r, nil
}

func parseTime(annotations map[string]string, key string) (time.Time, error) {
	raw, ok := annotations[key]
	if !ok || raw == "" {
		return time.Time{}, kerr.NewIncompleteRecord("annotation missing: " + key)
	}
	t, err := time.Parse(timeFormat, raw)
	if err != nil {
		return time.Time{}, kerr.NewIncompleteRecord("annotation malformed: " + key + " = " + raw)
	}
	return t, nil
}

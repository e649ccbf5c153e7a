// internal/app/system/inputval/validators.go
package inputval

import (
	"errors"
	"html"
	"net/mail"
	"net/url"
	"strings"

	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmissionHosts are the only hosts a task submission may link to.
var SubmissionHosts = []string{"drive.google.com", "github.com"}

var (
	ErrLinkMalformed = errors.New("submission link is not a valid URL")
	ErrLinkScheme    = errors.New("submission link must start with https://")
	ErrLinkHost      = errors.New("submission link must point to drive.google.com or github.com")
)

var strict = bluemonday.StrictPolicy()

// Clean strips markup from free text and trims it.
func Clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// SubmissionLink cleans raw and checks that it is an https URL on an
// allowed host. It returns the cleaned link.
func SubmissionLink(raw string) (string, error) {
	link := Clean(raw)
	if link == "" || link != strings.TrimSpace(raw) {
		return "", ErrLinkMalformed
	}
	if err := engine().Var(link, "url"); err != nil {
		return "", ErrLinkMalformed
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "", ErrLinkMalformed
	}
	if u.Scheme != "https" || !strings.HasPrefix(link, "https://") {
		return "", ErrLinkScheme
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range SubmissionHosts {
		if host == h {
			return link, nil
		}
	}
	return "", ErrLinkHost
}

// IsValidEmail reports whether s is a bare address (no display name) with a
// well-formed local part and domain.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	local, domain := s[:at], s[at+1:]
	for _, part := range []string{local, domain} {
		if part == "" || strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") || strings.Contains(part, "..") {
			return false
		}
	}
	return true
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsValidHTTPURL reports whether s is an absolute http or https URL.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// IsValidCourseType reports whether s names a course delivery type.
func IsValidCourseType(s string) bool {
	return s == models.CourseOnline || s == models.CourseOffline
}

package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oksasatya/go-water-tracker/pkg/mailer"
	mailtpl "github.com/oksasatya/go-water-tracker/pkg/mailer/templates"
)

const localTimeLayout = "02 January 2006, 15:04 MST"

var subjects = map[string]string{
	mailtpl.LoginNotification: "New login to your account",
	mailtpl.VerifyEmail:       "Verify your email address",
	mailtpl.ForgotPassword:    "Reset your password",
	mailtpl.ProfileUpdated:    "Your profile was updated",
	mailtpl.AccountDeleted:    "Your account was deleted",
}

func str(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// subjectFor picks the subject of a universal email from its Type.
func subjectFor(data map[string]any) string {
	if s, ok := subjects[strings.ToLower(str(data["Type"]))]; ok {
		return s
	}
	return "Notification"
}

// normalizeJob fills the recipient fields the templates read and routes
// per-type template names to the universal template.
func normalizeJob(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	for _, k := range []string{"Email", "RecipientEmail"} {
		if str(job.Data[k]) == "" {
			job.Data[k] = job.To
		}
	}
	name := strings.ToLower(job.Template)
	if _, ok := subjects[name]; ok {
		if str(job.Data["Type"]) == "" {
			job.Data["Type"] = name
		}
		job.Template = mailtpl.Universal
	}
}

// localize resolves the client IP once, fills Location when missing and
// rewrites the display times into the client's timezone.
func localize(ctx context.Context, geo mailtpl.GeoResolver, data map[string]any) {
	ip := str(data["IP"])
	if geo == nil || ip == "" {
		return
	}
	g, err := geo.Lookup(ctx, ip)
	if err != nil {
		return
	}
	if str(data["Location"]) == "" {
		if loc := mailtpl.FormatGeo(g); loc != "" {
			data["Location"] = loc
		}
	}
	if strings.TrimSpace(g.Timezone) == "" {
		return
	}
	tz, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	for src, dst := range map[string]string{"ExpiresAt": "ExpiresAtText", "TimeAt": "Time"} {
		if t, ok := parseTime(data[src]); ok {
			data[dst] = t.In(tz).Format(localTimeLayout)
		}
	}
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		p, err := time.Parse(time.RFC3339, t)
		return p, err == nil && !p.IsZero()
	}
	return time.Time{}, false
}

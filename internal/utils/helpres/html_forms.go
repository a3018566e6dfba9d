package helpers

import (
	"fmt"
	"html"
	"time"
)

func BuildPasswordResetHTML(name, resetLink string, ttl time.Duration) string {
	return fmt.Sprintf(`
<html>
  <body style="font-family:Arial,sans-serif; background:#f9f9f9;">
    <table width="100%%" cellpadding="0" cellspacing="0" bgcolor="#f9f9f9">
      <tr>
        <td align="center" style="padding:32px 0;">
          <table width="500" bgcolor="#fff" cellpadding="24" cellspacing="0" style="border-radius:8px; box-shadow:0 1px 6px #eee;">
            <tr>
              <td>
                <h2 style="color:#2d74da; margin-top:0;">Password reset</h2>
                <div style="font-size:16px; color:#222;">Hello, %s!</div>
                <p style="margin:24px 0;">
                  We received a request to reset your password. The link is valid for %s and can be used once:
                </p>
                <p>
                  <a href="%s" style="display:inline-block;padding:12px 24px;background:#2d74da;color:#fff;text-decoration:none;border-radius:5px;font-weight:bold;">
                    Reset password
                  </a>
                </p>
                <hr style="margin:32px 0 16px 0; border:0; border-top:1px solid #eee;">
                <div style="font-size:12px; color:#999;">If you did not request a reset, just ignore this email.</div>
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>
`, html.EscapeString(name), humanTTL(ttl), html.EscapeString(resetLink))
}

func BuildPasswordResetText(name, resetLink string, ttl time.Duration) string {
	return fmt.Sprintf("Hello, %s!\n\nTo reset your password open the link below (valid for %s, single use):\n%s\n\nIf you did not request a reset, ignore this email.\n",
		name, humanTTL(ttl), resetLink)
}

func humanTTL(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}

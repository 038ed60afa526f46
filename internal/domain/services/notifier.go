package services

import "context"

// NotificationKind identifies an outbound notification trigger.
type NotificationKind string

const (
	KindCommentNew          NotificationKind = "comment-new"
	KindCommentContribution NotificationKind = "comment-contribution"
	KindCommentResolved     NotificationKind = "comment-resolved"
	KindCommentReplied      NotificationKind = "comment-replied"
	KindCommentLiked        NotificationKind = "comment-liked"
	KindDocumentClosing     NotificationKind = "document-closing-reminder"
	KindDocumentPublished   NotificationKind = "document-published"
	KindSupportValidation   NotificationKind = "support-validation-link"
)

// Notifier triggers outbound notifications. Dispatch is fire-and-forget:
// implementations must never block the caller on delivery and never surface
// delivery failures; a failed email must never fail the write it decorates.
type Notifier interface {
	Notify(ctx context.Context, kind NotificationKind, payload map[string]string)
}

// CaptchaProvider generates a captcha challenge: the rendered image and the
// expected answer text.
type CaptchaProvider interface {
	Issue() (image []byte, answer string, err error)
}

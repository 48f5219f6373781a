package transfer

// PublishCreation is the multipart form payload for a publish request. Target
// accounts arrive as a JSON-encoded array of account ids; the scheduled time,
// when present, uses the frontend's "2006-01-02T15:04" layout.
type PublishCreation struct {
	Content        string
	PostType       string
	LinkURL        string
	ScheduledTime  string
	TargetAccounts string
}

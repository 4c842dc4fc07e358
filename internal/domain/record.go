package domain

type serverTimestamp struct{}

// ServerTimestamp is a placeholder record value the remote store replaces
// with its own write time (created_at, updated_at, uploaded_at).
var ServerTimestamp = serverTimestamp{}

// Remote collection names, used to build "profiles/<profileId>/<collection>" paths.
const (
	CollectionReminders = "reminders"
	CollectionDocuments = "documents"
)

// CollectionPath returns "profiles/<profileID>/<collection>".
func CollectionPath(profileID, collection string) string {
	return "profiles/" + profileID + "/" + collection
}

// RecordPath returns "profiles/<profileID>/<collection>/<recordID>".
func RecordPath(profileID, collection, recordID string) string {
	return CollectionPath(profileID, collection) + "/" + recordID
}

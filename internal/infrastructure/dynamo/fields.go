package dynamo

// DynamoDB attribute names shared by every synced collection.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldProfileID = "profile_id"
	fieldRecordID  = "record_id"
)

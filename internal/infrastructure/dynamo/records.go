package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/pkg/id"
)

// api is the subset of *dynamodb.Client the record store needs.
type api interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// RecordStore is a path-addressed document store over DynamoDB. A collection
// path "profiles/<profileId>/<collection>" maps to the table configured for
// <collection>; a record path appends "/<recordId>".
type RecordStore struct {
	client api
	tables map[string]string
	now    func() time.Time
}

func NewRecordStore(client *dynamodb.Client, tables map[string]string) *RecordStore {
	return &RecordStore{client: client, tables: tables, now: time.Now}
}

// Create writes record into the collection and returns its id. A record that
// already carries "record_id" is written under that id, so replaying the same
// create overwrites instead of duplicating.
func (s *RecordStore) Create(ctx context.Context, collectionPath string, record map[string]any) (string, error) {
	p, err := parsePath(collectionPath)
	if err != nil {
		return "", err
	}
	if p.recordID != "" {
		return "", fmt.Errorf("create needs a collection path, got %q: %w", collectionPath, domain.ErrBadRequest)
	}
	table, err := s.table(p.collection)
	if err != nil {
		return "", err
	}

	item := s.resolve(record)
	recordID, _ := item[fieldRecordID].(string)
	if recordID == "" {
		recordID = id.New()
	}
	item[fieldRecordID] = recordID
	item[fieldProfileID] = p.profileID

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      av,
	}); err != nil {
		return "", fmt.Errorf("put %s: %w", collectionPath, err)
	}
	return recordID, nil
}

// Update sets the given fields on an existing record. Updating a record that
// does not exist fails with domain.ErrNotFound.
func (s *RecordStore) Update(ctx context.Context, path string, partial map[string]any) error {
	p, err := parseRecordPath(path)
	if err != nil {
		return err
	}
	table, err := s.table(p.collection)
	if err != nil {
		return err
	}
	fields := s.resolve(partial)
	delete(fields, fieldRecordID)
	delete(fields, fieldProfileID)
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return err
	}
	ue.Names["#pk"] = fieldRecordID
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       compositeKey(fieldProfileID, p.profileID, fieldRecordID, p.recordID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("update %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

// Delete removes a record. Deleting a missing record succeeds.
func (s *RecordStore) Delete(ctx context.Context, path string) error {
	p, err := parseRecordPath(path)
	if err != nil {
		return err
	}
	table, err := s.table(p.collection)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       compositeKey(fieldProfileID, p.profileID, fieldRecordID, p.recordID),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *RecordStore) table(collection string) (string, error) {
	t, ok := s.tables[collection]
	if !ok {
		return "", fmt.Errorf("unknown collection %q: %w", collection, domain.ErrBadRequest)
	}
	return t, nil
}

// resolve copies fields, replacing domain.ServerTimestamp with the write time.
func (s *RecordStore) resolve(fields map[string]any) map[string]any {
	ts := s.now().UTC().Format(time.RFC3339Nano)
	out := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		if v == domain.ServerTimestamp {
			out[k] = ts
			continue
		}
		out[k] = v
	}
	return out
}

type recordPath struct {
	profileID  string
	collection string
	recordID   string
}

func parsePath(path string) (recordPath, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if (len(parts) != 3 && len(parts) != 4) || parts[0] != "profiles" {
		return recordPath{}, fmt.Errorf("malformed path %q: %w", path, domain.ErrBadRequest)
	}
	for _, part := range parts {
		if part == "" {
			return recordPath{}, fmt.Errorf("malformed path %q: %w", path, domain.ErrBadRequest)
		}
	}
	p := recordPath{profileID: parts[1], collection: parts[2]}
	if len(parts) == 4 {
		p.recordID = parts[3]
	}
	return p, nil
}

func parseRecordPath(path string) (recordPath, error) {
	p, err := parsePath(path)
	if err != nil {
		return p, err
	}
	if p.recordID == "" {
		return p, fmt.Errorf("path %q has no record id: %w", path, domain.ErrBadRequest)
	}
	return p, nil
}

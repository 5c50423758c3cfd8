package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"tax-interview-agent/internal/domain"
)

const (
	skPrefixRecord = "RECORD#"
	skMeta         = "META#"
	ttlDuration    = 90 * 24 * time.Hour // keep records one filing season
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client wraps a DynamoDB table holding completed answer records, one item
// per (identity, purpose) plus a per-identity meta item.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

func userPK(identity string) string {
	return "USER#" + identity
}

func recordSK(purpose string) string {
	return skPrefixRecord + purpose
}

func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// Save overwrites the answer record for (identity, purpose) and the
// identity's meta item in one transaction. The whole answer set is
// re-serialized on every call, which is what makes completion retries safe.
func (c *Client) Save(ctx context.Context, purpose, identity string, answers domain.AnswerSet) error {
	if strings.TrimSpace(purpose) == "" || strings.TrimSpace(identity) == "" {
		return errors.New("repository: Save: purpose and identity are required")
	}
	if len(answers) == 0 {
		return errors.New("repository: Save: answers must not be empty")
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("repository: Save marshal answers: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName: aws.String(c.tableName),
					Item: map[string]types.AttributeValue{
						"PK":        &types.AttributeValueMemberS{Value: userPK(identity)},
						"SK":        &types.AttributeValueMemberS{Value: recordSK(purpose)},
						"identity":  &types.AttributeValueMemberS{Value: identity},
						"purpose":   &types.AttributeValueMemberS{Value: purpose},
						"recordId":  &types.AttributeValueMemberS{Value: uuid.NewString()},
						"answers":   &types.AttributeValueMemberS{Value: string(payload)},
						"updatedAt": &types.AttributeValueMemberS{Value: now},
						"ttl":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttlValue())},
					},
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(c.tableName),
					Item: map[string]types.AttributeValue{
						"PK":           &types.AttributeValueMemberS{Value: userPK(identity)},
						"SK":           &types.AttributeValueMemberS{Value: skMeta},
						"identity":     &types.AttributeValueMemberS{Value: identity},
						"lastPurpose":  &types.AttributeValueMemberS{Value: purpose},
						"lastActivity": &types.AttributeValueMemberS{Value: now},
						"ttl":          &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttlValue())},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

// GetAnswerRecord loads one record by purpose. The second return reports
// whether a record exists.
func (c *Client) GetAnswerRecord(ctx context.Context, purpose, identity string) (domain.AnswerSet, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(identity)},
			"SK": &types.AttributeValueMemberS{Value: recordSK(purpose)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("repository: GetAnswerRecord get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, false, nil
	}
	answers, err := itemAnswers(out.Item)
	if err != nil {
		return nil, false, fmt.Errorf("repository: GetAnswerRecord decode: %w", err)
	}
	return answers, true, nil
}

// ListAnswerRecords returns all of an identity's answer records keyed by
// purpose.
func (c *Client) ListAnswerRecords(ctx context.Context, identity string) (map[string]domain.AnswerSet, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userPK(identity)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixRecord},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListAnswerRecords query: %w", err)
	}

	records := make(map[string]domain.AnswerSet, len(out.Items))
	for _, item := range out.Items {
		purpose, err := strAttr(item, "purpose")
		if err != nil {
			return nil, fmt.Errorf("repository: ListAnswerRecords: %w", err)
		}
		answers, err := itemAnswers(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListAnswerRecords decode %q: %w", purpose, err)
		}
		records[purpose] = answers
	}
	return records, nil
}

func itemAnswers(item map[string]types.AttributeValue) (domain.AnswerSet, error) {
	raw, err := strAttr(item, "answers")
	if err != nil {
		return nil, err
	}
	var answers domain.AnswerSet
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return answers, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}

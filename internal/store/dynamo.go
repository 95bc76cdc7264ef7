package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

// dynamoAPI is the slice of the DynamoDB client we use, kept small so tests
// can fake it.
type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore persists metadata records to a single DynamoDB table with
// namespace as partition key and record key as sort key.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

var _ MetadataStore = (*DynamoStore)(nil)

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("store: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("store: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{client: client, tableName: tableName, logger: logger}
}

// Upsert writes the record, replacing any existing one with the same key.
func (s *DynamoStore) Upsert(ctx context.Context, rec Record) error {
	if rec.Namespace == "" || rec.Key == "" {
		return errors.New("store: namespace and key are required")
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("store: failed to marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("store: failed to persist record %s/%s: %w", rec.Namespace, rec.Key, err)
	}
	return nil
}

// Query fetches every record in the namespace and filters client-side with
// exact field matching. Namespaces here hold at most a handful of records
// per user, so a partition scan plus in-process filter is plenty.
func (s *DynamoStore) Query(ctx context.Context, namespace string, filter Filter) ([]Record, error) {
	if namespace == "" {
		return nil, errors.New("store: namespace is required")
	}

	var matched []Record
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    aws.String("ns = :ns"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":ns": &types.AttributeValueMemberS{Value: namespace}},
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("store: query namespace %s: %w", namespace, err)
		}

		for _, item := range out.Items {
			var rec Record
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				s.logger.Warn("skipping unreadable record", "namespace", namespace, "error", err)
				continue
			}
			if filter.Matches(rec.Fields) {
				matched = append(matched, rec)
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return matched, nil
}

// Get returns the record with the given key, or ErrNotFound.
func (s *DynamoStore) Get(ctx context.Context, namespace, key string) (Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"ns": &types.AttributeValueMemberS{Value: namespace},
			"sk": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return Record{}, fmt.Errorf("store: get record %s/%s: %w", namespace, key, err)
	}
	if len(out.Item) == 0 {
		return Record{}, ErrNotFound
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Record{}, fmt.Errorf("store: unmarshal record %s/%s: %w", namespace, key, err)
	}
	return rec, nil
}

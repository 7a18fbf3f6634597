// Package dynamo implements the cache store on Amazon DynamoDB.
//
// Expired items are reaped by DynamoDB's native TTL on the expires_at
// attribute, so the store has no Sweep. Reads still check expiry because
// native TTL deletion can lag by hours.
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sagarc03/edgestow"
)

// Config holds the settings for building a DynamoDB-backed store.
type Config struct {
	// Table is the DynamoDB table name. Required. The table's partition key
	// must be the string attribute "key", and TTL should be enabled on
	// "expires_at".
	Table string
	// Endpoint overrides the service endpoint, for DynamoDB Local.
	Endpoint string
	// Region is the AWS region.
	Region string
	// AccessKeyID and SecretAccessKey are static credentials. When empty the
	// default AWS credential chain applies.
	AccessKeyID     string
	SecretAccessKey string
}

// api is the subset of the DynamoDB client the store uses.
type api interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store persists cache entries as DynamoDB items, one item per key.
type Store struct {
	client api
	table  string
}

type record struct {
	Key        string            `dynamodbav:"key"`
	Status     int               `dynamodbav:"status"`
	Headers    map[string]string `dynamodbav:"headers"`
	Body       []byte            `dynamodbav:"body"`
	StoredAt   int64             `dynamodbav:"stored_at"`
	TTLSeconds int               `dynamodbav:"ttl_seconds"`
	ExpiresAt  int64             `dynamodbav:"expires_at"`
}

// New builds a store from the given configuration.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("new dynamo store: table is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("new dynamo store: load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Store{client: client, table: cfg.Table}, nil
}

// newStoreWithAPI wires a store to a fake client for tests.
func newStoreWithAPI(client api, table string) *Store {
	return &Store{client: client, table: table}
}

func (s *Store) Get(ctx context.Context, key string) (*edgestow.CachedEntry, error) {
	keyAttr, err := attributevalue.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("get: marshal key: %w", err)
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{"key": keyAttr},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	if len(out.Item) == 0 {
		return nil, edgestow.ErrNotFound
	}

	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("get: unmarshal item: %w", err)
	}

	entry := &edgestow.CachedEntry{
		Key:        rec.Key,
		Status:     rec.Status,
		Headers:    rec.Headers,
		Body:       rec.Body,
		StoredAt:   rec.StoredAt,
		TTLSeconds: rec.TTLSeconds,
	}
	if entry.Expired(time.Now()) {
		_ = s.Delete(ctx, key)
		return nil, edgestow.ErrExpired
	}

	return entry, nil
}

func (s *Store) Set(ctx context.Context, entry *edgestow.CachedEntry) error {
	rec := record{
		Key:        entry.Key,
		Status:     entry.Status,
		Headers:    entry.Headers,
		Body:       entry.Body,
		StoredAt:   entry.StoredAt,
		TTLSeconds: entry.TTLSeconds,
		ExpiresAt:  entry.StoredAt + int64(entry.TTLSeconds),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("set: marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	keyAttr, err := attributevalue.Marshal(key)
	if err != nil {
		return fmt.Errorf("delete: marshal key: %w", err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       map[string]types.AttributeValue{"key": keyAttr},
	})
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	return nil
}

// Close is a no-op; the SDK client holds no long-lived resources.
func (s *Store) Close() error {
	return nil
}

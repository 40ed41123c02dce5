package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CommitLog records which snapshot blob is the current one for an index,
// backed by DynamoDB. S3 has no compare-and-swap, so the pointer to the
// latest snapshot lives in a table with conditional writes: two concurrent
// backups cannot both claim the same version.
//
// Table schema:
//   - Partition key: index_uri (string) - the s3://bucket/prefix of the index
//   - Sort key: version (number) - monotonically increasing commit version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name imgsim-commits \
//	  --attribute-definitions AttributeName=index_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=index_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitLog struct {
	client    DDBClient
	tableName string
	indexURI  string
}

// DDBClient is the subset of the DynamoDB API the commit log needs.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var (
	// ErrConcurrentCommit is returned when a concurrent backup won the
	// version race; the caller should retry with a fresh read.
	ErrConcurrentCommit = errors.New("s3: concurrent snapshot commit detected")

	// ErrNoCommit is returned by Latest when no snapshot has been
	// committed yet.
	ErrNoCommit = errors.New("s3: no committed snapshot")
)

// NewCommitLog creates a commit log for the given index URI.
func NewCommitLog(client DDBClient, tableName, indexURI string) *CommitLog {
	return &CommitLog{
		client:    client,
		tableName: tableName,
		indexURI:  indexURI,
	}
}

// Latest returns the blob name of the most recently committed snapshot.
func (c *CommitLog) Latest(ctx context.Context) (string, error) {
	_, name, err := c.latestVersion(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", ErrNoCommit
	}
	return name, nil
}

// Commit atomically records name as the latest snapshot.
func (c *CommitLog) Commit(ctx context.Context, name string) error {
	currentVersion, _, err := c.latestVersion(ctx)
	if err != nil {
		return err
	}

	newVersion := currentVersion + 1

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]ddbtypes.AttributeValue{
			"index_uri":    &ddbtypes.AttributeValueMemberS{Value: c.indexURI},
			"version":      &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", newVersion)},
			"snapshot_key": &ddbtypes.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentCommit
		}
		return fmt.Errorf("s3: commit snapshot version: %w", err)
	}
	return nil
}

// latestVersion queries DynamoDB for the latest committed version.
func (c *CommitLog) latestVersion(ctx context.Context) (uint64, string, error) {
	resp, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("index_uri = :uri"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":uri": &ddbtypes.AttributeValueMemberS{Value: c.indexURI},
		},
		ScanIndexForward: aws.Bool(false), // descending: newest first
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query commit log: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: invalid version attribute in commit log")
	}
	keyAttr, ok := item["snapshot_key"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: invalid snapshot_key attribute in commit log")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("s3: parse commit version: %w", err)
	}
	return version, keyAttr.Value, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"financial-planner/internal/domain"
)

const (
	skPrefixTurn   = "TURN#"
	skMeta         = "META#"
	statusComplete = "complete"
	ttlDuration    = 30 * 24 * time.Hour
)

// dynamodbAPI is the subset of *dynamodb.Client used here.
type dynamodbAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// MaxHistoryLimit caps the number of turns a single GetHistory call reads.
const MaxHistoryLimit = 100

// Store holds per-session chat history.
type Store interface {
	GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	SaveTurn(ctx context.Context, sessionID, message, reply string) error
}

var (
	_ Store = (*Client)(nil)
	_ Store = (*MemoryStore)(nil)
)

// Client keeps session history in a single DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func turnSK(ts time.Time) string {
	return skPrefixTurn + ts.UTC().Format(time.RFC3339Nano)
}

// GetHistory returns up to limit completed turns, oldest first. limit is
// clamped to MaxHistoryLimit.
func (c *Client) GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	limit = min(limit, MaxHistoryLimit)
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
		},
		// Newest first so Limit keeps the most recent turns.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: GetHistory query: %w", err)
	}

	turns := make([]domain.Turn, 0, len(out.Items))
	for i := len(out.Items) - 1; i >= 0; i-- {
		turn, err := itemToTurn(out.Items[i])
		if err != nil {
			return nil, fmt.Errorf("repository: GetHistory unmarshal: %w", err)
		}
		if turn.Status != statusComplete {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// SaveTurn writes the exchange and bumps the session's turn counter in one
// transaction.
func (c *Client) SaveTurn(ctx context.Context, sessionID, message, reply string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: SaveTurn: session id is required")
	}
	now := c.now().UTC()
	turn := domain.Turn{
		PK:        sessionPK(sessionID),
		SK:        turnSK(now),
		SessionID: sessionID,
		Message:   message,
		Reply:     reply,
		Status:    statusComplete,
		TTL:       now.Add(ttlDuration).Unix(),
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                turnItem(turn),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Update: &types.Update{
					TableName: aws.String(c.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: turn.PK},
						"SK": &types.AttributeValueMemberS{Value: skMeta},
					},
					UpdateExpression:         aws.String("ADD turns :one SET sessionId = :sid, lastActivity = :now, #ttl = :ttl"),
					ExpressionAttributeNames: map[string]string{"#ttl": "ttl"},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":one": &types.AttributeValueMemberN{Value: "1"},
						":sid": &types.AttributeValueMemberS{Value: sessionID},
						":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
						":ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(turn.TTL, 10)},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SaveTurn: %w", err)
	}
	return nil
}

func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Turn{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.Turn{}, err
	}
	message, err := strAttr(item, "message")
	if err != nil {
		return domain.Turn{}, err
	}
	reply, _ := strAttr(item, "reply")
	status, _ := strAttr(item, "status")
	sessionID, _ := strAttr(item, "sessionId")

	return domain.Turn{
		PK:        pk,
		SK:        sk,
		SessionID: sessionID,
		Message:   message,
		Reply:     reply,
		Status:    status,
	}, nil
}

func turnItem(t domain.Turn) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: t.PK},
		"SK":        &types.AttributeValueMemberS{Value: t.SK},
		"sessionId": &types.AttributeValueMemberS{Value: t.SessionID},
		"message":   &types.AttributeValueMemberS{Value: t.Message},
		"reply":     &types.AttributeValueMemberS{Value: t.Reply},
		"status":    &types.AttributeValueMemberS{Value: t.Status},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(t.TTL, 10)},
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

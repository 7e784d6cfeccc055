package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/modal"
)

type DynamoOptions struct {
	Region       string
	Endpoint     string
	ActionsTable string
	TasksTable   string
}

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoStore keeps tasks and actions in two tables keyed by task_id and
// action_id. Versions are enforced with condition expressions.
type DynamoStore struct {
	db           DynamoAPI
	actionsTable string
	tasksTable   string
}

func NewDynamoStore(ctx context.Context, opts DynamoOptions) (*DynamoStore, error) {
	if opts.ActionsTable == "" || opts.TasksTable == "" {
		return nil, fmt.Errorf("dynamo actions and tasks tables are required")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewDynamoStoreWithClient(client, opts), nil
}

func NewDynamoStoreWithClient(db DynamoAPI, opts DynamoOptions) *DynamoStore {
	return &DynamoStore{db: db, actionsTable: opts.ActionsTable, tasksTable: opts.TasksTable}
}

func stringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

func (s *DynamoStore) GetAction(ctx context.Context, actionID string) (modal.Action, error) {
	var a modal.Action
	if err := s.get(ctx, s.actionsTable, stringKey("action_id", actionID), &a); err != nil {
		return modal.Action{}, fmt.Errorf("get action %q: %w", actionID, err)
	}
	return a, nil
}

func (s *DynamoStore) GetTask(ctx context.Context, taskID string) (modal.Task, error) {
	var t modal.Task
	if err := s.get(ctx, s.tasksTable, stringKey("task_id", taskID), &t); err != nil {
		return modal.Task{}, fmt.Errorf("get task %q: %w", taskID, err)
	}
	return t, nil
}

func (s *DynamoStore) get(ctx context.Context, table string, key map[string]types.AttributeValue, out any) error {
	res, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return err
	}
	if res.Item == nil {
		return lifecycle.ErrNotFound
	}
	return attributevalue.UnmarshalMap(res.Item, out)
}

func (s *DynamoStore) ListActions(ctx context.Context, filter ActionFilter) ([]modal.Action, error) {
	// Scan.Limit bounds evaluated items before the filter runs, so paging
	// continues until LastEvaluatedKey is empty and the limit applies after.
	in := &dynamodb.ScanInput{TableName: aws.String(s.actionsTable)}

	var conds []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	if filter.State != "" {
		conds = append(conds, "#st = :st")
		names["#st"] = "state"
		values[":st"] = &types.AttributeValueMemberS{Value: string(filter.State)}
	}
	if filter.TaskID != "" {
		conds = append(conds, "task_id = :tid")
		values[":tid"] = &types.AttributeValueMemberS{Value: filter.TaskID}
	}
	if len(conds) > 0 {
		expr := conds[0]
		for _, c := range conds[1:] {
			expr += " AND " + c
		}
		in.FilterExpression = aws.String(expr)
		in.ExpressionAttributeValues = values
		if len(names) > 0 {
			in.ExpressionAttributeNames = names
		}
	}

	var actions []modal.Action
	pages := dynamodb.NewScanPaginator(s.db, in)
	for pages.HasMorePages() {
		out, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan actions: %w", err)
		}
		var page []modal.Action
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal actions: %w", err)
		}
		actions = append(actions, page...)
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].ID < actions[j].ID })
	if filter.Limit > 0 && len(actions) > filter.Limit {
		actions = actions[:filter.Limit]
	}
	if actions == nil {
		actions = []modal.Action{}
	}
	return actions, nil
}

func (s *DynamoStore) CreateTask(ctx context.Context, t modal.Task) error {
	t.Version = 1
	put, err := s.putNew(s.tasksTable, "task_id", t)
	if err != nil {
		return err
	}
	_, err = s.db.PutItem(ctx, put)
	return mapConditionErr(err, "task "+t.ID)
}

// CreateAction does not verify the parent task; the engine reads it first.
func (s *DynamoStore) CreateAction(ctx context.Context, a modal.Action) error {
	a.Version = 1
	put, err := s.putNew(s.actionsTable, "action_id", a)
	if err != nil {
		return err
	}
	_, err = s.db.PutItem(ctx, put)
	return mapConditionErr(err, "action "+a.ID)
}

func (s *DynamoStore) PutTask(ctx context.Context, t modal.Task) (modal.Task, error) {
	expected := t.Version
	t.Version++
	put, err := s.putVersioned(s.tasksTable, "task_id", t, expected)
	if err != nil {
		return modal.Task{}, err
	}
	if _, err := s.db.PutItem(ctx, put); err != nil {
		return modal.Task{}, mapConditionErr(err, "task "+t.ID)
	}
	return t, nil
}

func (s *DynamoStore) PutAction(ctx context.Context, a modal.Action) (modal.Action, error) {
	expected := a.Version
	a.Version++
	put, err := s.putVersioned(s.actionsTable, "action_id", a, expected)
	if err != nil {
		return modal.Action{}, err
	}
	if _, err := s.db.PutItem(ctx, put); err != nil {
		return modal.Action{}, mapConditionErr(err, "action "+a.ID)
	}
	return a, nil
}

func (s *DynamoStore) PutActionAndTask(ctx context.Context, a modal.Action, t modal.Task) (modal.Action, modal.Task, error) {
	expectedA, expectedT := a.Version, t.Version
	a.Version++
	t.Version++

	putA, err := s.putVersioned(s.actionsTable, "action_id", a, expectedA)
	if err != nil {
		return modal.Action{}, modal.Task{}, err
	}
	putT, err := s.putVersioned(s.tasksTable, "task_id", t, expectedT)
	if err != nil {
		return modal.Action{}, modal.Task{}, err
	}

	_, err = s.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                 putA.TableName,
				Item:                      putA.Item,
				ConditionExpression:       putA.ConditionExpression,
				ExpressionAttributeNames:  putA.ExpressionAttributeNames,
				ExpressionAttributeValues: putA.ExpressionAttributeValues,
			}},
			{Put: &types.Put{
				TableName:                 putT.TableName,
				Item:                      putT.Item,
				ConditionExpression:       putT.ConditionExpression,
				ExpressionAttributeNames:  putT.ExpressionAttributeNames,
				ExpressionAttributeValues: putT.ExpressionAttributeValues,
			}},
		},
	})
	if err != nil {
		return modal.Action{}, modal.Task{}, mapConditionErr(err, "action "+a.ID+" and task "+t.ID)
	}
	return a, t, nil
}

func (s *DynamoStore) putNew(table, keyAttr string, v any) (*dynamodb.PutItemInput, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s item: %w", table, err)
	}
	return &dynamodb.PutItemInput{
		TableName:           aws.String(table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + keyAttr + ")"),
	}, nil
}

func (s *DynamoStore) putVersioned(table, keyAttr string, v any, expected int64) (*dynamodb.PutItemInput, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s item: %w", table, err)
	}
	return &dynamodb.PutItemInput{
		TableName:           aws.String(table),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(" + keyAttr + ") AND #ver = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#ver": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		},
	}, nil
}

// mapConditionErr turns failed conditions into ErrStoreConflict so callers
// can re-read and retry.
func mapConditionErr(err error, what string) error {
	if err == nil {
		return nil
	}
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return fmt.Errorf("%w: %s changed since it was read", lifecycle.ErrStoreConflict, what)
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, r := range tce.CancellationReasons {
			if aws.ToString(r.Code) == "ConditionalCheckFailed" {
				return fmt.Errorf("%w: %s changed since it was read", lifecycle.ErrStoreConflict, what)
			}
		}
	}
	return fmt.Errorf("write %s: %w", what, err)
}

// Package dynamo provides a DynamoDB-backed executor for veil operations.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/veil"
)

// Table maps a logical entity to its DynamoDB table.
type Table struct {
	// Entity is the logical entity name (e.g. "order").
	Entity string

	// Name is the DynamoDB table name (e.g. "orders").
	Name string

	// Key is the partition key attribute. Default: "id"
	Key string
}

// Executor runs veil operations against DynamoDB. Filtered reads are served
// by scans with filter expressions; bulk writes fan out item by item.
//
// Relation inclusion is not supported: DynamoDB has no joins, so operations
// carrying Include return [veil.ErrUnsupported].
type Executor struct {
	client *dynamodb.Client
	tables map[string]Table
}

// NewExecutor creates an Executor over a DynamoDB client.
func NewExecutor(client *dynamodb.Client, tables ...Table) *Executor {
	e := &Executor{
		client: client,
		tables: make(map[string]Table, len(tables)),
	}
	for _, t := range tables {
		if t.Key == "" {
			t.Key = "id"
		}
		e.tables[t.Entity] = t
	}
	return e
}

// Exec runs one operation and returns its rows or affected-item count.
func (e *Executor) Exec(ctx context.Context, op *veil.Operation) (*veil.Result, error) {
	t, ok := e.tables[op.Entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", veil.ErrUnknownEntity, op.Entity)
	}
	if len(op.Args.Include) > 0 {
		return nil, fmt.Errorf("%w: include on %s", veil.ErrUnsupported, op.Entity)
	}

	switch op.Action {
	case veil.ActionCreate:
		return e.create(ctx, t, op)
	case veil.ActionFindUnique:
		return e.getItem(ctx, t, op)
	case veil.ActionFindFirst:
		return e.scan(ctx, t, op.Args.Where, 1)
	case veil.ActionFindMany:
		return e.scan(ctx, t, op.Args.Where, op.Args.Limit)
	case veil.ActionUpdate:
		return e.updateItem(ctx, t, op)
	case veil.ActionUpdateMany:
		return e.updateMany(ctx, t, op)
	case veil.ActionDelete:
		return e.deleteItem(ctx, t, op)
	case veil.ActionDeleteMany:
		return e.deleteMany(ctx, t, op)
	}
	return nil, fmt.Errorf("%w: %s", veil.ErrUnsupported, op.Action)
}

// create puts a new item, generating the key if absent.
func (e *Executor) create(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	data := make(map[string]any, len(op.Args.Data)+1)
	for k, v := range op.Args.Data {
		data[k] = v
	}
	if _, ok := data[t.Key]; !ok {
		data[t.Key] = uuid.New().String()
	}

	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", op.Entity, err)
	}

	_, err = e.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(t.Name),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#key)"),
		ExpressionAttributeNames: map[string]string{"#key": t.Key},
	})
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", op.Entity, err)
	}

	return &veil.Result{Records: []veil.Record{veil.Record(data)}, Count: 1}, nil
}

// getItem serves the direct unique-lookup path used by skip-listed entities.
func (e *Executor) getItem(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	key, err := e.keyFrom(t, op.Args.Where)
	if err != nil {
		return nil, err
	}

	out, err := e.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.Name),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", op.Entity, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s", veil.ErrNotFound, op.Entity)
	}

	record, err := unmarshalRecord(out.Item)
	if err != nil {
		return nil, err
	}
	return &veil.Result{Records: []veil.Record{record}, Count: 1}, nil
}

// scan reads items matching the predicate. With limit 1, pagination stops at
// the first match and a miss is ErrNotFound.
func (e *Executor) scan(ctx context.Context, t Table, where veil.Where, limit int) (*veil.Result, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(t.Name)}

	filter, names, values, err := buildFilter(flattenGroups(where))
	if err != nil {
		return nil, err
	}
	if filter != "" {
		input.FilterExpression = aws.String(filter)
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	var records []veil.Record
	paginator := dynamodb.NewScanPaginator(e.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.Name, err)
		}
		for _, raw := range page.Items {
			record, err := unmarshalRecord(raw)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
			if limit > 0 && len(records) >= limit {
				return &veil.Result{Records: records, Count: int64(len(records))}, nil
			}
		}
	}

	if limit == 1 && len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", veil.ErrNotFound, t.Entity)
	}
	return &veil.Result{Records: records, Count: int64(len(records))}, nil
}

// updateItem updates one item keyed by the predicate. Non-key predicate
// entries become a condition; a failed condition reports ErrNotFound.
func (e *Executor) updateItem(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	where := flattenGroups(op.Args.Where)
	key, err := e.keyFrom(t, where)
	if err != nil {
		return nil, err
	}

	update, names, values, err := buildUpdate(op.Args.Data)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.Name),
		Key:                       key,
		UpdateExpression:          aws.String(update),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}

	rest := make(map[string]any)
	for k, v := range where {
		if k != t.Key {
			rest[k] = v
		}
	}
	if len(rest) > 0 {
		cond, condNames, condValues, err := buildCondition(rest)
		if err != nil {
			return nil, err
		}
		input.ConditionExpression = aws.String(cond)
		for k, v := range condNames {
			names[k] = v
		}
		for k, v := range condValues {
			values[k] = v
		}
	}

	_, err = e.client.UpdateItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, fmt.Errorf("%w: %s", veil.ErrNotFound, op.Entity)
		}
		return nil, fmt.Errorf("update %s: %w", op.Entity, err)
	}
	return &veil.Result{Count: 1}, nil
}

// updateMany scans for matching items and updates them one by one.
func (e *Executor) updateMany(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	matches, err := e.scan(ctx, t, op.Args.Where, 0)
	if err != nil {
		return nil, err
	}

	update, names, values, err := buildUpdate(op.Args.Data)
	if err != nil {
		return nil, err
	}

	var count int64
	for _, record := range matches.Records {
		key, err := e.keyFrom(t, veil.Where{t.Key: record[t.Key]})
		if err != nil {
			return nil, err
		}
		_, err = e.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(t.Name),
			Key:                       key,
			UpdateExpression:          aws.String(update),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		})
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", op.Entity, err)
		}
		count++
	}
	return &veil.Result{Count: count}, nil
}

// deleteItem physically removes one item (skip-listed entities only).
func (e *Executor) deleteItem(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	key, err := e.keyFrom(t, flattenGroups(op.Args.Where))
	if err != nil {
		return nil, err
	}
	_, err = e.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.Name),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", op.Entity, err)
	}
	return &veil.Result{Count: 1}, nil
}

// deleteMany physically removes all matching items (skip-listed entities only).
func (e *Executor) deleteMany(ctx context.Context, t Table, op *veil.Operation) (*veil.Result, error) {
	matches, err := e.scan(ctx, t, op.Args.Where, 0)
	if err != nil {
		return nil, err
	}

	var count int64
	for _, record := range matches.Records {
		key, err := e.keyFrom(t, veil.Where{t.Key: record[t.Key]})
		if err != nil {
			return nil, err
		}
		_, err = e.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(t.Name),
			Key:       key,
		})
		if err != nil {
			return nil, fmt.Errorf("delete %s: %w", op.Entity, err)
		}
		count++
	}
	return &veil.Result{Count: count}, nil
}

// keyFrom extracts the primary key attribute from a predicate.
func (e *Executor) keyFrom(t Table, where map[string]any) (map[string]types.AttributeValue, error) {
	value, ok := where[t.Key]
	if !ok {
		return nil, fmt.Errorf("missing key %q for %s", t.Key, t.Entity)
	}
	attr, err := attributevalue.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return map[string]types.AttributeValue{t.Key: attr}, nil
}

// buildFilter renders an equality predicate as a filter expression with
// generated attribute placeholders, keys in sorted order.
func buildFilter(where map[string]any) (string, map[string]string, map[string]types.AttributeValue, error) {
	return buildClauses(where, "f", " AND ")
}

// buildCondition renders an equality predicate as a condition expression.
func buildCondition(where map[string]any) (string, map[string]string, map[string]types.AttributeValue, error) {
	return buildClauses(where, "c", " AND ")
}

// buildUpdate renders field assignments as a SET update expression.
func buildUpdate(data veil.Data) (string, map[string]string, map[string]types.AttributeValue, error) {
	expr, names, values, err := buildClauses(data, "u", ", ")
	if err != nil {
		return "", nil, nil, err
	}
	if expr == "" {
		return "", nil, nil, fmt.Errorf("no data to update")
	}
	return "SET " + expr, names, values, nil
}

// buildClauses generates "#p0 = :p0" pairs for each entry, in sorted key
// order so generated expressions are deterministic.
func buildClauses(entries map[string]any, prefix, sep string) (string, map[string]string, map[string]types.AttributeValue, error) {
	if len(entries) == 0 {
		return "", nil, nil, nil
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(entries))
	names := make(map[string]string, len(entries))
	values := make(map[string]types.AttributeValue, len(entries))
	for i, k := range keys {
		nameKey := fmt.Sprintf("#%s%d", prefix, i)
		valueKey := fmt.Sprintf(":%s%d", prefix, i)
		attr, err := attributevalue.Marshal(entries[k])
		if err != nil {
			return "", nil, nil, fmt.Errorf("marshal %s: %w", k, err)
		}
		names[nameKey] = k
		values[valueKey] = attr
		clauses = append(clauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	return strings.Join(clauses, sep), names, values, nil
}

// flattenGroups hoists composite-key groups so skip-listed unique lookups
// (which bypass the rewrite chain) still resolve to key attributes.
func flattenGroups(where veil.Where) map[string]any {
	if where == nil {
		return nil
	}
	flat := make(map[string]any, len(where))
	for key, value := range where {
		switch group := value.(type) {
		case veil.Where:
			for k, v := range group {
				flat[k] = v
			}
		case map[string]any:
			for k, v := range group {
				flat[k] = v
			}
		default:
			flat[key] = value
		}
	}
	return flat
}

// unmarshalRecord converts a DynamoDB item to a generic record.
func unmarshalRecord(item map[string]types.AttributeValue) (veil.Record, error) {
	var record veil.Record
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return record, nil
}

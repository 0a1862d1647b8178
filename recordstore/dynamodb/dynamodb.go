package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/nanovdb/internal/conv"
	"github.com/hupe1980/nanovdb/model"
	"github.com/hupe1980/nanovdb/recordstore"
)

// DDBClient is the subset of the DynamoDB API used by Store.
type DDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// ErrConcurrentModification is returned when another writer replaced the
// record set between the start and the commit of a write.
var ErrConcurrentModification = errors.New("concurrent modification detected")

const (
	attrPK         = "pk"
	attrSK         = "sk"
	attrGeneration = "gen"
	attrDimension  = "embedding_dim"
	attrCount      = "record_count"
	attrAdditional = "additional_data"
	attrID         = "id"
	attrVector     = "vec"

	metaSK = "meta"

	// maxBatchWrite is the DynamoDB limit for BatchWriteItem.
	maxBatchWrite = 25
	maxRetries    = 8
)

// Store implements recordstore.RecordStore on a DynamoDB table.
type Store struct {
	client    DDBClient
	tableName string
	now       func() time.Time
}

// NewStore creates a store on the given table.
func NewStore(client DDBClient, tableName string) *Store {
	return &Store{client: client, tableName: tableName, now: time.Now}
}

// New creates a store with a client built from cfg.
func New(cfg aws.Config, tableName string, optFns ...func(*dynamodb.Options)) *Store {
	return NewStore(dynamodb.NewFromConfig(cfg, optFns...), tableName)
}

func generationPrefix(gen uint64) string {
	return fmt.Sprintf("r#%020d#", gen)
}

func recordSK(gen uint64, seq int) string {
	return fmt.Sprintf("%s%010d", generationPrefix(gen), seq)
}

func key(location, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: location},
		attrSK: &types.AttributeValueMemberS{Value: sk},
	}
}

type metaItem struct {
	gen        uint64
	dim        int
	count      int
	additional []byte
}

func (s *Store) getMeta(ctx context.Context, location string) (*metaItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(location, metaSK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get meta: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, recordstore.ErrNotFound
	}

	gen, err := numberAttr(out.Item, attrGeneration)
	if err != nil {
		return nil, err
	}
	dim, err := numberAttr(out.Item, attrDimension)
	if err != nil {
		return nil, err
	}
	count, err := numberAttr(out.Item, attrCount)
	if err != nil {
		return nil, err
	}

	m := &metaItem{gen: gen, dim: int(dim), count: int(count)} //nolint:gosec // validated on write
	if b, ok := out.Item[attrAdditional].(*types.AttributeValueMemberB); ok {
		m.additional = b.Value
	}
	return m, nil
}

func numberAttr(item map[string]types.AttributeValue, name string) (uint64, error) {
	n, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("%w: missing attribute %q", recordstore.ErrCorrupt, name)
	}
	v, err := strconv.ParseUint(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: attribute %q: %w", recordstore.ErrCorrupt, name, err)
	}
	return v, nil
}

// WriteRecords stores snap under a new generation and swaps the meta
// pointer to it. Records of the previous generation are removed afterwards.
func (s *Store) WriteRecords(ctx context.Context, location string, snap *model.Snapshot) error {
	if err := recordstore.Validate(snap); err != nil {
		return err
	}

	var (
		oldGen uint64
		hasOld bool
	)
	switch m, err := s.getMeta(ctx, location); {
	case err == nil:
		oldGen, hasOld = m.gen, true
	case !errors.Is(err, recordstore.ErrNotFound):
		return err
	}

	gen := uint64(s.now().UnixNano()) //nolint:gosec // wall clock is positive
	if gen <= oldGen {
		gen = oldGen + 1
	}

	puts := make([]types.WriteRequest, 0, len(snap.Records))
	for i, r := range snap.Records {
		item := key(location, recordSK(gen, i))
		item[attrID] = &types.AttributeValueMemberS{Value: r.ID}
		item[attrVector] = &types.AttributeValueMemberB{Value: conv.Float32sToBytes(r.Vector)}
		puts = append(puts, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	if err := s.batchWrite(ctx, puts); err != nil {
		s.purge(ctx, location, generationPrefix(gen))
		return fmt.Errorf("failed to write records: %w", err)
	}

	meta := key(location, metaSK)
	meta[attrGeneration] = &types.AttributeValueMemberN{Value: strconv.FormatUint(gen, 10)}
	meta[attrDimension] = &types.AttributeValueMemberN{Value: strconv.Itoa(snap.Dimension)}
	meta[attrCount] = &types.AttributeValueMemberN{Value: strconv.Itoa(len(snap.Records))}
	if snap.AdditionalData != nil {
		meta[attrAdditional] = &types.AttributeValueMemberB{Value: snap.AdditionalData}
	}

	put := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      meta,
	}
	if hasOld {
		put.ConditionExpression = aws.String("#gen = :old")
		put.ExpressionAttributeNames = map[string]string{"#gen": attrGeneration}
		put.ExpressionAttributeValues = map[string]types.AttributeValue{
			":old": &types.AttributeValueMemberN{Value: strconv.FormatUint(oldGen, 10)},
		}
	} else {
		put.ConditionExpression = aws.String("attribute_not_exists(pk)")
	}

	if _, err := s.client.PutItem(ctx, put); err != nil {
		s.purge(ctx, location, generationPrefix(gen))
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("failed to commit meta: %w", err)
	}

	if hasOld {
		s.purge(ctx, location, generationPrefix(oldGen))
	}
	return nil
}

// ReadRecords loads the committed generation at location.
func (s *Store) ReadRecords(ctx context.Context, location string) (*model.Snapshot, error) {
	m, err := s.getMeta(ctx, location)
	if err != nil {
		return nil, err
	}

	snap := &model.Snapshot{Dimension: m.dim, AdditionalData: m.additional}
	if m.count > 0 {
		snap.Records = make([]model.Record, 0, m.count)
	}

	err = s.query(ctx, location, generationPrefix(m.gen), func(item map[string]types.AttributeValue) error {
		id, ok := item[attrID].(*types.AttributeValueMemberS)
		if !ok {
			return fmt.Errorf("%w: record without id", recordstore.ErrCorrupt)
		}
		b, ok := item[attrVector].(*types.AttributeValueMemberB)
		if !ok {
			return fmt.Errorf("%w: record %q without vector", recordstore.ErrCorrupt, id.Value)
		}
		vec, err := conv.BytesToFloat32s(b.Value)
		if err != nil {
			return fmt.Errorf("%w: record %q: %w", recordstore.ErrCorrupt, id.Value, err)
		}
		snap.Records = append(snap.Records, model.Record{ID: id.Value, Vector: vec})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(snap.Records) != m.count {
		return nil, fmt.Errorf("%w: found %d records, meta says %d", recordstore.ErrCorrupt, len(snap.Records), m.count)
	}
	if err := recordstore.Validate(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Delete removes the meta pointer first, then every record item.
func (s *Store) Delete(ctx context.Context, location string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       key(location, metaSK),
	}); err != nil {
		return fmt.Errorf("failed to delete meta: %w", err)
	}
	return s.deletePrefix(ctx, location, "r#")
}

// Exists reports whether location has a committed record set.
func (s *Store) Exists(ctx context.Context, location string) (bool, error) {
	_, err := s.getMeta(ctx, location)
	if errors.Is(err, recordstore.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// query pages through all items of location whose sort key starts with prefix.
func (s *Store) query(ctx context.Context, location, prefix string, fn func(map[string]types.AttributeValue) error) error {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: location},
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		},
		ConsistentRead: aws.Bool(true),
	}

	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to query records: %w", err)
		}
		for _, item := range out.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (s *Store) deletePrefix(ctx context.Context, location, prefix string) error {
	var dels []types.WriteRequest
	err := s.query(ctx, location, prefix, func(item map[string]types.AttributeValue) error {
		sk, ok := item[attrSK].(*types.AttributeValueMemberS)
		if !ok {
			return nil
		}
		dels = append(dels, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key(location, sk.Value)}})
		return nil
	})
	if err != nil {
		return err
	}
	return s.batchWrite(ctx, dels)
}

// purge removes items best-effort; leftovers are unreachable garbage.
func (s *Store) purge(ctx context.Context, location, prefix string) {
	_ = s.deletePrefix(context.WithoutCancel(ctx), location, prefix)
}

// batchWrite sends requests in chunks, retrying unprocessed items with backoff.
func (s *Store) batchWrite(ctx context.Context, reqs []types.WriteRequest) error {
	for start := 0; start < len(reqs); start += maxBatchWrite {
		pending := reqs[start:min(start+maxBatchWrite, len(reqs))]

		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == maxRetries {
				return fmt.Errorf("%d items left unprocessed after %d attempts", len(pending), maxRetries)
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(1<<attempt) * 10 * time.Millisecond):
				}
			}

			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{s.tableName: pending},
			})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems[s.tableName]
		}
	}
	return nil
}

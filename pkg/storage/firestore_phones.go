package storage

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/matst80/killu-finder/pkg/types"
	"google.golang.org/api/iterator"
)

type FirestorePhoneStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestorePhoneStore(client *firestore.Client) *FirestorePhoneStore {
	return &FirestorePhoneStore{client: client, collection: PhoneCollection}
}

func direction(d types.Direction) firestore.Direction {
	if d == types.Ascending {
		return firestore.Asc
	}
	return firestore.Desc
}

// buildQuery applies the equality filters in field order, then the ranking.
func buildQuery(col *firestore.CollectionRef, q types.QuerySpec) firestore.Query {
	query := col.Query
	for _, field := range q.FilterFields() {
		value := q.Filters[field]
		if value == "" {
			continue
		}
		query = query.Where(field, "==", value)
	}
	if q.OrderByField != "" {
		query = query.OrderBy(q.OrderByField, direction(q.OrderDirection))
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

func (s *FirestorePhoneStore) GetPhones(ctx context.Context, q types.QuerySpec) ([]types.PhoneRecord, error) {
	iter := buildQuery(s.client.Collection(s.collection), q).Documents(ctx)
	defer iter.Stop()

	ret := make([]types.PhoneRecord, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		ret = append(ret, types.PhoneRecord{ID: doc.Ref.ID, Fields: doc.Data()})
	}
	return ret, nil
}

// Upsert writes phones in batches, used by the importer.
func (s *FirestorePhoneStore) Upsert(ctx context.Context, phones ...types.PhoneRecord) error {
	bw := s.client.BulkWriter(ctx)
	col := s.client.Collection(s.collection)
	jobs := make([]*firestore.BulkWriterJob, 0, len(phones))
	for _, p := range phones {
		var ref *firestore.DocumentRef
		if p.ID != "" {
			ref = col.Doc(p.ID)
		} else {
			ref = col.NewDoc()
		}
		job, err := bw.Set(ref, p.Fields)
		if err != nil {
			bw.End()
			return err
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return err
		}
	}
	return nil
}

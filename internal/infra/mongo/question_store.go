package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"quitz-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens a client and verifies the deployment is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// QuestionStore keeps questions as documents shaped
// {_id: ObjectId, q: string, c|mc: [string], a: [int] | [string]}.
type QuestionStore struct {
	collection *mongo.Collection
}

func NewQuestionStore(collection *mongo.Collection) *QuestionStore {
	return &QuestionStore{collection: collection}
}

func (s *QuestionStore) Insert(ctx context.Context, question domain.Question) (string, error) {
	res, err := s.collection.InsertOne(ctx, toDocument(question))
	if err != nil {
		return "", fmt.Errorf("insert question: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert question: unexpected id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

func (s *QuestionStore) FindOne(ctx context.Context, id string) (domain.Question, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	raw, err := s.collection.FindOne(ctx, bson.M{"_id": objID}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Question{}, domain.ErrQuestionNotFound
		}
		return domain.Question{}, fmt.Errorf("find question %s: %w", id, err)
	}
	return fromDocument(raw)
}

func (s *QuestionStore) FindMany(ctx context.Context, ids []string) ([]domain.Question, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objectIDs = append(objectIDs, objID)
	}
	if len(objectIDs) == 0 {
		return []domain.Question{}, nil
	}
	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	return drain(ctx, cursor), nil
}

func (s *QuestionStore) Sample(ctx context.Context, size int) ([]domain.Question, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: size}}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	return drain(ctx, cursor), nil
}

func (s *QuestionStore) IncrementTallies(ctx context.Context, id string, slots []int) error {
	return s.update(ctx, id, incrementUpdate(slots))
}

func (s *QuestionStore) AppendAnswer(ctx context.Context, id, text string) error {
	return s.update(ctx, id, bson.M{"$push": bson.M{"a": text}})
}

func (s *QuestionStore) update(ctx context.Context, id string, update bson.M) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("update question %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// incrementUpdate builds one $inc touching every selected tally slot, so a
// multi-choice answer lands atomically.
func incrementUpdate(slots []int) bson.M {
	inc := bson.M{}
	for _, slot := range slots {
		inc["a."+strconv.Itoa(slot)] = 1
	}
	return bson.M{"$inc": inc}
}

// drain collects decoded questions until the cursor ends or a document fails
// to decode; whatever was collected so far is returned.
func drain(ctx context.Context, cursor *mongo.Cursor) []domain.Question {
	defer cursor.Close(ctx)
	questions := []domain.Question{}
	for cursor.Next(ctx) {
		question, err := fromDocument(cursor.Current)
		if err != nil {
			slog.Warn("stopping at undecodable question", "error", err)
			break
		}
		questions = append(questions, question)
	}
	if err := cursor.Err(); err != nil {
		slog.Warn("question cursor ended early", "error", err)
	}
	return questions
}

func toDocument(q domain.Question) bson.D {
	doc := bson.D{}
	if q.Text != "" || q.Kind == domain.KindText {
		doc = append(doc, bson.E{Key: "q", Value: q.Text})
	}
	switch q.Kind {
	case domain.KindChoice, domain.KindMulti:
		labels := q.Options
		if labels == nil {
			labels = []string{}
		}
		tallies := q.Tallies
		if tallies == nil {
			tallies = make([]int64, len(labels))
		}
		doc = append(doc,
			bson.E{Key: q.Kind.OptionsKey(), Value: labels},
			bson.E{Key: "a", Value: tallies},
		)
	default:
		answers := q.Answers
		if answers == nil {
			answers = []string{}
		}
		doc = append(doc, bson.E{Key: "a", Value: answers})
	}
	return doc
}

// fromDocument parses a stored document into the closed question variant:
// c wins over mc; neither means free text.
func fromDocument(raw bson.Raw) (domain.Question, error) {
	var q domain.Question

	idVal, err := raw.LookupErr("_id")
	if err != nil {
		return q, fmt.Errorf("decode question: missing _id")
	}
	if oid, ok := idVal.ObjectIDOK(); ok {
		q.ID = oid.Hex()
	} else if s, ok := idVal.StringValueOK(); ok {
		q.ID = s
	} else {
		return q, fmt.Errorf("decode question: unsupported _id type %s", idVal.Type)
	}

	if textVal, err := raw.LookupErr("q"); err == nil {
		if s, ok := textVal.StringValueOK(); ok {
			q.Text = s
		}
	}

	q.Kind = domain.KindText
	for _, kind := range []domain.Kind{domain.KindChoice, domain.KindMulti} {
		optVal, err := raw.LookupErr(kind.OptionsKey())
		if err != nil {
			continue
		}
		if err := optVal.Unmarshal(&q.Options); err != nil {
			return q, fmt.Errorf("decode question %s options: %w", q.ID, err)
		}
		q.Kind = kind
		break
	}

	answers, err := raw.LookupErr("a")
	if err != nil {
		return q, fmt.Errorf("decode question %s: missing answers", q.ID)
	}
	if q.Kind == domain.KindText {
		q.Answers = []string{}
		if err := answers.Unmarshal(&q.Answers); err != nil {
			return q, fmt.Errorf("decode question %s answers: %w", q.ID, err)
		}
		return q, nil
	}
	q.Tallies = []int64{}
	if err := answers.Unmarshal(&q.Tallies); err != nil {
		return q, fmt.Errorf("decode question %s tallies: %w", q.ID, err)
	}
	if q.Options == nil {
		q.Options = []string{}
	}
	return q, nil
}

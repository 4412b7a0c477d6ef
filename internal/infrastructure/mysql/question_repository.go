package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"auction-marketplace/internal/domain"
)

type MySQLQuestionRepository struct {
	db *sql.DB
}

func NewMySQLQuestionRepository(db *sql.DB) *MySQLQuestionRepository {
	return &MySQLQuestionRepository{db: db}
}

func (r *MySQLQuestionRepository) InsertQuestion(ctx context.Context, question *domain.Question) error {
	query := `
        INSERT INTO questions (id, listing_id, user_id, body, time)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := dbFromContext(ctx, r.db).ExecContext(ctx, query,
		question.ID, question.ListingID, question.UserID, question.Body, question.Time)
	return err
}

func (r *MySQLQuestionRepository) GetQuestion(ctx context.Context, questionID string) (*domain.Question, error) {
	query := `
        SELECT q.id, q.listing_id, q.user_id, q.body, q.time,
               a.id, a.author_id, a.body, a.time
        FROM questions q
        LEFT JOIN answers a ON a.question_id = q.id
        WHERE q.id = ?
    `
	question, err := scanQuestion(dbFromContext(ctx, r.db).QueryRowContext(ctx, query, questionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("get question %s: %w", questionID, domain.ErrNotFound)
		}
		return nil, err
	}
	return question, nil
}

// AttachAnswer inserts the answer row; the unique key on question_id makes
// the one-answer-per-question rule hold even for concurrent attempts.
func (r *MySQLQuestionRepository) AttachAnswer(ctx context.Context, questionID string, answer *domain.Answer) error {
	query := `
        INSERT INTO answers (id, question_id, author_id, body, time)
        SELECT ?, ?, ?, ?, ? FROM DUAL
        WHERE NOT EXISTS (SELECT 1 FROM answers WHERE question_id = ?)
    `
	res, err := dbFromContext(ctx, r.db).ExecContext(ctx, query,
		answer.ID, questionID, answer.AuthorID, answer.Body, answer.Time, questionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("attach answer to question %s: %w", questionID, domain.ErrAlreadyAnswered)
	}
	return nil
}

func (r *MySQLQuestionRepository) QuestionsForListing(ctx context.Context, listingID string) ([]*domain.Question, error) {
	query := `
        SELECT q.id, q.listing_id, q.user_id, q.body, q.time,
               a.id, a.author_id, a.body, a.time
        FROM questions q
        LEFT JOIN answers a ON a.question_id = q.id
        WHERE q.listing_id = ?
        ORDER BY q.time DESC
    `
	rows, err := dbFromContext(ctx, r.db).QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []*domain.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

func scanQuestion(row rowScanner) (*domain.Question, error) {
	var question domain.Question
	var answerID, answerAuthor, answerBody sql.NullString
	var answerTime sql.NullTime

	err := row.Scan(
		&question.ID, &question.ListingID, &question.UserID, &question.Body, &question.Time,
		&answerID, &answerAuthor, &answerBody, &answerTime)
	if err != nil {
		return nil, err
	}

	if answerID.Valid {
		question.Answer = &domain.Answer{
			ID:         answerID.String,
			QuestionID: question.ID,
			AuthorID:   answerAuthor.String,
			Body:       answerBody.String,
			Time:       answerTime.Time,
		}
	}
	return &question, nil
}

// Package library holds the books available at the library and their quizzes.
// A book only counts as read once its quiz is answered correctly.
package library

import "errors"

var ErrUnknownBook = errors.New("unknown book")

// Quiz is a single multiple-choice question about a book.
type Quiz struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  int      `json:"correct"`
}

// Book is one of the library's story discs.
type Book struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Quiz        Quiz   `json:"quiz"`
}

// Check reports whether answer is the correct option index.
func (b Book) Check(answer int) bool {
	return answer == b.Quiz.Correct
}

var books = []Book{
	{
		ID:          "growth-mindset",
		Title:       "Growth Mindset",
		Description: "The belief that you can change and improve",
		Content: "You are not fixed. Your brain can rewire. Recovery is possible. " +
			"Every small step forward proves you can change. This is the foundation of all transformation.",
		Quiz: Quiz{
			Question: "What is the key message of growth mindset?",
			Options: []string{
				"I am doomed to fail",
				"I can change and improve through effort",
				"Only some people can recover",
			},
			Correct: 1,
		},
	},
	{
		ID:          "how-addiction-works",
		Title:       "Understanding Soma",
		Description: "How the drug hijacks your brain",
		Content: "Soma floods your brain with artificial dopamine. Over time, your brain stops producing its own. " +
			"That's why you feel empty without it. But your brain can heal. " +
			"Exercise, reading, and connection naturally restore dopamine.",
		Quiz: Quiz{
			Question: "How do you restore natural dopamine?",
			Options: []string{
				"Only through more soma",
				"Exercise, reading, and human connection",
				"It's impossible to restore",
			},
			Correct: 1,
		},
	},
	{
		ID:          "habit-formation",
		Title:       "Building New Habits",
		Description: "Replace bad patterns with good ones",
		Content: "Habits are formed through repetition. Avoid triggers (people and places that tempt you). " +
			"Replace the bad habit with a good one. Stay consistent. Small wins compound into transformation.",
		Quiz: Quiz{
			Question: "How do you break bad habits?",
			Options: []string{
				"Willpower alone is enough",
				"Avoid triggers and replace with good habits",
				"Wait for motivation to strike",
			},
			Correct: 1,
		},
	},
}

// All returns every book in shelf order.
func All() []Book {
	return append([]Book(nil), books...)
}

// Get looks a book up by id.
func Get(id string) (Book, error) {
	for _, b := range books {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, ErrUnknownBook
}

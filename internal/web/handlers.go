package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/session"
)

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleListDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decks, err := s.decks.ListDecks(r.Context(), s.clock.Now())
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		out := make([]deckView, 0, len(decks))
		for _, d := range decks {
			out = append(out, newDeckSummaryView(d))
		}
		respondJSON(w, http.StatusOK, out)
	}
}

type createDeckRequest struct {
	Name  string        `json:"name" validate:"required,max=200"`
	Cards []cardRequest `json:"cards" validate:"dive"`
}

type cardRequest struct {
	Front   string `json:"front" validate:"required"`
	Back    string `json:"back"`
	Context string `json:"context"`
}

// handleCreateDeck creates a deck from inline cards.
func (s *Server) handleCreateDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDeckRequest
		if err := s.decode(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		cards := make([]domain.Card, 0, len(req.Cards))
		for _, c := range req.Cards {
			cards = append(cards, domain.Card{Front: c.Front, Back: c.Back, Context: c.Context})
		}
		report, err := s.importer.CreateDeck(r.Context(), req.Name, cards)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		summary, err := s.summarize(r.Context(), report.Deck)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, newDeckSummaryView(summary))
	}
}

func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		deck, err := s.decks.FindDeck(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		summary, err := s.summarize(r.Context(), *deck)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, newDeckSummaryView(summary))
	}
}

// summarize counts the deck's items the same way ListDecks does.
func (s *Server) summarize(ctx context.Context, deck domain.Deck) (domain.DeckSummary, error) {
	items, err := s.items.FetchItems(ctx, deck.ID)
	if err != nil {
		return domain.DeckSummary{}, err
	}
	summary := domain.DeckSummary{Deck: deck}
	now := s.clock.Now()
	for _, it := range items {
		summary.Count(it, now)
	}
	return summary, nil
}

func (s *Server) handleDeleteDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := s.decks.DeleteDeck(r.Context(), id); err != nil {
			s.respondError(w, r, err)
			return
		}
		s.forget(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if _, err := s.decks.FindDeck(r.Context(), id); err != nil {
			s.respondError(w, r, err)
			return
		}
		items, err := s.items.FetchItems(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		out := make([]itemView, 0, len(items))
		for _, it := range items {
			out = append(out, newItemView(it))
		}
		respondJSON(w, http.StatusOK, out)
	}
}

type prepareRequest struct {
	Strategy string `json:"strategy" validate:"omitempty,oneof=linear shuffled intelligent sequential random"`
}

// handlePrepareSession resumes the deck's active session or starts a new one.
func (s *Server) handlePrepareSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var req prepareRequest
		if err := s.decodeOptional(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		strategy := s.strategy
		if req.Strategy != "" {
			if strategy, err = domain.ParseStrategy(req.Strategy); err != nil {
				s.respondError(w, r, err)
				return
			}
		}

		st, err := s.liveSession(r.Context(), id)
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, newSessionView(st))
			return
		case !errors.Is(err, domain.ErrNoActiveSession):
			s.respondError(w, r, err)
			return
		}

		st, err = s.sessions.Prepare(r.Context(), id, strategy)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		st = s.remember(id, st)
		respondJSON(w, http.StatusOK, newSessionView(st))
	}
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		st, err := s.liveSession(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, newSessionView(st))
	}
}

type advanceRequest struct {
	Direction string `json:"direction" validate:"required,oneof=next previous"`
}

func (s *Server) handleAdvance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var req advanceRequest
		if err := s.decode(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		st, err := s.liveSession(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		dir := session.Next
		if req.Direction == "previous" {
			dir = session.Previous
		}
		if err := st.Move(r.Context(), dir); err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, newSessionView(st))
	}
}

type strategyRequest struct {
	Strategy string `json:"strategy" validate:"required"`
}

func (s *Server) handleChangeStrategy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var req strategyRequest
		if err := s.decode(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		strategy, err := domain.ParseStrategy(req.Strategy)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		st, err := s.liveSession(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := st.ChangeStrategy(r.Context(), strategy); err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, newSessionView(st))
	}
}

type reviewRequest struct {
	// Rating is a name (again, hard, good, easy) or its number 1-4.
	Rating string `json:"rating" validate:"required"`
	// Advance moves to the next item after a successful review.
	Advance bool `json:"advance"`
}

type reviewResponse struct {
	Review  reviewView  `json:"review"`
	Item    itemView    `json:"item"`
	Session sessionView `json:"session"`
}

// handleReview rates the current item of the deck's session.
func (s *Server) handleReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var req reviewRequest
		if err := s.decode(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		rating, err := domain.ParseRating(req.Rating)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		st, err := s.liveSession(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		entry, err := st.Rate(r.Context(), rating)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		item, _ := st.Item(entry.ItemID)
		if req.Advance {
			if err := st.Move(r.Context(), session.Next); err != nil {
				s.respondError(w, r, err)
				return
			}
		}
		respondJSON(w, http.StatusOK, reviewResponse{
			Review:  newReviewView(entry),
			Item:    newItemView(item),
			Session: newSessionView(st),
		})
	}
}

func (s *Server) handleFinish() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		st, err := s.liveSession(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := st.Finish(r.Context()); err != nil {
			s.respondError(w, r, err)
			return
		}
		s.forget(id)
		respondJSON(w, http.StatusOK, newSessionView(st))
	}
}

// handleAddItem adds one card to an existing deck. A live session picks it
// up the next time its queue is rebuilt.
func (s *Server) handleAddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var req cardRequest
		if err := s.decode(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		item, err := s.importer.AddCard(r.Context(), id, domain.Card{Front: req.Front, Back: req.Back, Context: req.Context})
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, newItemView(*item))
	}
}

// handleEditItem replaces the faces of a card, keeping its review history.
func (s *Server) handleEditItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		itemID, err := itemIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var req cardRequest
		if err := s.decode(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		item, err := s.importer.EditCard(r.Context(), deckID, itemID, domain.Card{Front: req.Front, Back: req.Back, Context: req.Context})
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if st, ok := s.peek(deckID); ok {
			st.Refresh(*item)
		}
		respondJSON(w, http.StatusOK, newItemView(*item))
	}
}

func (s *Server) handleItemReviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		itemID, err := itemIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		item, err := s.items.FetchItem(r.Context(), itemID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if item.DeckID != deckID {
			s.respondError(w, r, &domain.NotFoundError{Kind: "item", ID: itemID})
			return
		}
		entries, err := s.reviews.ReviewsForItem(r.Context(), itemID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, newReviewViews(entries))
	}
}

func (s *Server) handleSessionReviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deckIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		st, err := s.liveSession(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		entries, err := s.reviews.ReviewsForSession(r.Context(), st.Session().ID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, newReviewViews(entries))
	}
}

type sessionStatsResponse struct {
	Session sessionView  `json:"session"`
	Reviews []reviewView `json:"reviews"`
}

// handleSessionStats reports any session, finished or not, with the reviews
// given during it.
func (s *Server) handleSessionStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		rec, err := s.records.FindSession(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		view := newSessionRecordView(*rec)
		if st, ok := s.peek(rec.DeckID); ok && st.Session().ID == id {
			view = newSessionView(st)
		}
		entries, err := s.reviews.ReviewsForSession(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sessionStatsResponse{Session: view, Reviews: newReviewViews(entries)})
	}
}

// handleDeleteSession discards a session. Its reviews stay in the item
// histories.
func (s *Server) handleDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDParam(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		rec, err := s.records.FindSession(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := s.records.DeleteSession(r.Context(), id); err != nil {
			s.respondError(w, r, err)
			return
		}
		s.forgetSession(rec.DeckID, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

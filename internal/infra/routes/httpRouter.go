package routes

import (
	"encoding/json"
	"net/http"

	"dispute-assistant/internal/infra/handlers"

	"github.com/gorilla/mux"
)

type Routes struct {
	Mux                 *mux.Router
	ConversationHandler *handlers.ConversationHandlers
}

func NewRoutes(mux *mux.Router, conversationHandler *handlers.ConversationHandlers) *Routes {
	return &Routes{mux, conversationHandler}
}

func (r *Routes) Init() {
	api := r.Mux.PathPrefix("/api").Subrouter()

	api.HandleFunc("/conversations", r.ConversationHandler.CreateConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}", r.ConversationHandler.GetConversation).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", r.ConversationHandler.DeleteConversation).Methods(http.MethodDelete)
	api.HandleFunc("/conversations/{id}/messages", r.ConversationHandler.SendMessage).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/attachments", r.ConversationHandler.StageAttachments).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/attachments", r.ConversationHandler.ListAttachments).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/attachments/{index}", r.ConversationHandler.RemoveAttachment).Methods(http.MethodDelete)
	api.HandleFunc("/conversations/{id}/turns/{turnId}/confirm", r.ConversationHandler.ConfirmTurn).Methods(http.MethodPost)
	api.HandleFunc("/artifacts/{id}", r.ConversationHandler.DownloadArtifact).Methods(http.MethodGet)

	r.Mux.HandleFunc("/healthCheck", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods(http.MethodGet)
}

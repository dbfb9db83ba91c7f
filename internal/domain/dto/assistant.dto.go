package dto

// Wire shapes for the assistant backend. Field names follow the backend
// contract exactly; nothing here is reinterpreted on the way through.

type ChatRequest struct {
	Message string `json:"message"`
}

type PDFPayload struct {
	Filename  string `json:"filename"`
	PDFBase64 string `json:"pdf_base64"`
}

type ChatResponse struct {
	Reply    string       `json:"reply"`
	IsReport bool         `json:"is_report"`
	PDFs     []PDFPayload `json:"pdfs"`
}

type ConfirmReportResponse struct {
	Reply string `json:"reply"`
}

type AfterReportRequest struct {
	Message string `json:"message"`
}

type AfterReportResponse struct {
	Reply string `json:"reply"`
}

package model

// WebhookRequest is one conversation turn from the dialogue service. Both the
// flat layout and the Dialogflow CX layout are accepted.
type WebhookRequest struct {
	FulfillmentTag    string `json:"fulfillmentTag,omitempty"`
	SessionID         string `json:"sessionId,omitempty"`
	SessionParameters Params `json:"sessionParameters,omitempty"`
	RecognizedText    string `json:"recognizedText,omitempty"`
	LanguageCode      string `json:"languageCode,omitempty"`

	FulfillmentInfo *FulfillmentInfo `json:"fulfillmentInfo,omitempty"`
	SessionInfo     *SessionInfo     `json:"sessionInfo,omitempty"`
	Text            string           `json:"text,omitempty"`
}

// FulfillmentInfo carries the fulfillment tag in the Dialogflow CX layout.
type FulfillmentInfo struct {
	Tag string `json:"tag"`
}

// SessionInfo carries the session path and parameters in the Dialogflow CX
// layout.
type SessionInfo struct {
	Session    string `json:"session,omitempty"`
	Parameters Params `json:"parameters"`
}

// Tag returns the fulfillment tag from whichever layout was used.
func (r *WebhookRequest) Tag() string {
	if r.FulfillmentTag != "" {
		return r.FulfillmentTag
	}
	if r.FulfillmentInfo != nil {
		return r.FulfillmentInfo.Tag
	}
	return ""
}

// Session returns the session id from whichever layout was used.
func (r *WebhookRequest) Session() string {
	if r.SessionID != "" {
		return r.SessionID
	}
	if r.SessionInfo != nil {
		return r.SessionInfo.Session
	}
	return ""
}

// Parameters returns the parameter bag, never nil.
func (r *WebhookRequest) Parameters() Params {
	if r.SessionParameters != nil {
		return r.SessionParameters
	}
	if r.SessionInfo != nil && r.SessionInfo.Parameters != nil {
		return r.SessionInfo.Parameters
	}
	return Params{}
}

// Utterance returns the recognized caller text.
func (r *WebhookRequest) Utterance() string {
	if r.RecognizedText != "" {
		return r.RecognizedText
	}
	return r.Text
}

// WebhookResponse is returned for every dispatched turn. The flat fields and
// the Dialogflow CX fields carry the same content.
type WebhookResponse struct {
	ReplyMessages       []string             `json:"replyMessages"`
	UpdatedParameters   Params               `json:"updatedParameters"`
	FulfillmentResponse *FulfillmentResponse `json:"fulfillmentResponse,omitempty"`
	SessionInfo         *SessionInfo         `json:"sessionInfo,omitempty"`
}

// FulfillmentResponse is the Dialogflow CX reply envelope.
type FulfillmentResponse struct {
	Messages []ResponseMessage `json:"messages"`
}

// ResponseMessage is one Dialogflow CX text message.
type ResponseMessage struct {
	Text ResponseText `json:"text"`
}

// ResponseText holds the lines of a Dialogflow CX text message.
type ResponseText struct {
	Text []string `json:"text"`
}

// NewWebhookResponse builds a response in both layouts.
func NewWebhookResponse(messages []string, delta Params) *WebhookResponse {
	if delta == nil {
		delta = Params{}
	}
	if messages == nil {
		messages = []string{}
	}
	cx := make([]ResponseMessage, 0, len(messages))
	for _, m := range messages {
		cx = append(cx, ResponseMessage{Text: ResponseText{Text: []string{m}}})
	}
	return &WebhookResponse{
		ReplyMessages:       messages,
		UpdatedParameters:   delta,
		FulfillmentResponse: &FulfillmentResponse{Messages: cx},
		SessionInfo:         &SessionInfo{Parameters: delta},
	}
}

// ChatRequest is a free-text turn from the web chat.
type ChatRequest struct {
	Message    string `json:"message"`
	SessionID  string `json:"sessionId,omitempty"`
	Tag        string `json:"tag,omitempty"`
	Parameters Params `json:"parameters,omitempty"`
}

// ChatResponse answers a ChatRequest with the merged parameter bag the client
// must send back next turn.
type ChatResponse struct {
	Response   string   `json:"response"`
	Messages   []string `json:"messages"`
	SessionID  string   `json:"sessionId"`
	Tag        string   `json:"tag"`
	Parameters Params   `json:"parameters"`
}

// ImageAnalysis is the result of analysing an uploaded damage photo.
type ImageAnalysis struct {
	Filename   string     `json:"filename"`
	Size       int64      `json:"size"`
	Dimensions Dimensions `json:"dimensions"`
	Format     string     `json:"format"`
	Analysis   string     `json:"analysis"`
	Provider   string     `json:"provider,omitempty"`
}

// Dimensions is an image size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ImageAnalysisResponse is returned by the image endpoint.
type ImageAnalysisResponse struct {
	Success  bool           `json:"success"`
	ImageURL string         `json:"imageUrl,omitempty"`
	Analysis *ImageAnalysis `json:"analysis"`
}

// ListIncidentsResponse is returned by the incident listing endpoint.
type ListIncidentsResponse struct {
	Incidents []Incident `json:"incidents"`
	Total     int        `json:"total"`
}

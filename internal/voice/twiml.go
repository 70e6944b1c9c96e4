package voice

import (
	"encoding/xml"
	"net/http"
)

const language = "de-DE"

type say struct {
	XMLName  xml.Name `xml:"Say"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Language      string   `xml:"language,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr"`
	Timeout       int      `xml:"timeout,attr"`
	Say           say
}

// twimlResponse renders its verbs in order.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

func sayVerb(text string) say {
	return say{Language: language, Text: text}
}

func greeting(action string) twimlResponse {
	return twimlResponse{Verbs: []any{
		gather{
			Input:         "speech",
			Language:      language,
			Action:        action,
			Method:        http.MethodPost,
			SpeechTimeout: "auto",
			Timeout:       10,
			Say:           sayVerb(msgGreeting),
		},
		sayVerb(msgNoInput),
	}}
}

func writeTwiML(w http.ResponseWriter, resp twimlResponse) error {
	body, err := xml.Marshal(resp)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, err = w.Write(body)
	return err
}

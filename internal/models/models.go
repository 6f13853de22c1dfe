package models

// Page holds the plain text extracted from one page (or slide, or sheet)
// of an uploaded document.
type Page struct {
	Number int    `json:"page"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// ChunkMeta is the provenance metadata attached to every indexed chunk.
// ChunkIndex is 0-based within its (source, page) pair; ChunkStart is the
// approximate character offset ChunkIndex*(chunkSize-chunkOverlap).
type ChunkMeta struct {
	Source     string `json:"source"`
	Page       int    `json:"page"`
	Chapter    string `json:"chapter"`
	ChunkIndex int    `json:"chunk_id"`
	ChunkStart int    `json:"chunk_start"`
}

// Chunk pairs a slice of document text with its metadata.
type Chunk struct {
	Content string    `json:"content"`
	Meta    ChunkMeta `json:"meta"`
}

// Question is one structured multiple-choice question parsed from
// LLM-generated quiz text.
type Question struct {
	Number        string   `json:"number"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Source is the attribution record returned alongside an answer.
type Source struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Chapter string `json:"chapter"`
}

package identification

// MovieRecognitionPrompt is the system prompt sent to the LLM when
// identifying which movie a video file contains.
const MovieRecognitionPrompt = `You identify movies from video file names and their folder names.

Rules:
- Ignore release noise: resolution (1080p, 2160p), source (BluRay, WEBRip), codec (x264, HEVC), audio tags, and release group names.
- A four digit number in the name is usually the theatrical release year, not part of the title.
- When the file name is uninformative (like "movie" or "video01"), rely on the folder name.
- Titles in languages other than English should be reported as the English release title when one exists.
- Use year 0 when you cannot determine the release year.
- Confidence reflects how certain you are of the exact movie, not how clean the name was.

Respond ONLY with JSON: {"title": "Movie Title", "year": 1999, "confidence": 0.0-1.0}`

// RecognitionAnswer is the LLM's identification of a movie.
type RecognitionAnswer struct {
	Title      string  `json:"title"`
	Year       int     `json:"year"`
	Confidence float64 `json:"confidence"`
}

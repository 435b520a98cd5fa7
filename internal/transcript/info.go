package transcript

// statusWindow is how many tail entries the classifier sees.
const statusWindow = 10

// Info is everything a poll extracts from one transcript read: the
// classification plus both previews.
type Info struct {
	Classification Classification
	LastPrompt     string
	LastOutput     string
}

// ReadInfo reads a transcript's tail once and extracts status, last user
// prompt and last assistant text from the same snapshot.
func ReadInfo(path string, opts Options) (Info, error) {
	snap, err := Load(path)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Classification: Classify(snap.LastEntries(statusWindow), opts),
		LastPrompt:     snap.LastUserPrompt(),
		LastOutput:     snap.LastAssistantText(),
	}, nil
}

// ReadStatus classifies a transcript without extracting previews.
func ReadStatus(path string, opts Options) (Classification, error) {
	entries, err := Tail(path, statusWindow)
	if err != nil {
		return Classification{Status: StatusUnknown}, err
	}
	return Classify(entries, opts), nil
}

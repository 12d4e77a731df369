package cookie

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// FlashCookie holds the pending flash messages of a client.
const FlashCookie = "fedauth_flash"

type flashes map[string][]string

// AddFlash queues msg under key for the next request. Messages already
// carried by r are kept.
func (j *Jar) AddFlash(w http.ResponseWriter, r *http.Request, key, msg string) error {
	f := j.readFlashes(r)
	f[key] = append(f[key], msg)
	return j.writeFlashes(w, f)
}

// Flashes returns and consumes the messages queued under key. Messages under
// other keys stay queued.
func (j *Jar) Flashes(w http.ResponseWriter, r *http.Request, key string) ([]string, error) {
	f := j.readFlashes(r)
	msgs, ok := f[key]
	if !ok {
		return nil, nil
	}
	delete(f, key)
	if len(f) == 0 {
		j.Delete(w, FlashCookie)
		return msgs, nil
	}
	return msgs, j.writeFlashes(w, f)
}

// readFlashes treats a missing or unreadable cookie as empty; a tampered
// flash cookie is simply dropped.
func (j *Jar) readFlashes(r *http.Request) flashes {
	f := flashes{}
	raw, err := j.GetSealed(r, FlashCookie)
	if err != nil {
		return f
	}
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return flashes{}
	}
	return f
}

func (j *Jar) writeFlashes(w http.ResponseWriter, f flashes) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal flash: %w", err)
	}
	if err := j.SetSealed(w, FlashCookie, string(data), WithMaxAge(0)); err != nil {
		return errors.Join(errors.New("failed to write flash"), err)
	}
	return nil
}

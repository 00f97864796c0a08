package prompt

import "sync"

// Scripted is a Confirmer that replays prepared answers in order.
// When the script runs out, Default is returned.
type Scripted struct {
	mu      sync.Mutex
	answers []bool
	Default bool
	// Err, when set, is returned from every Confirm call.
	Err error

	Asked  []string
	Pauses int
}

// NewScripted returns a Scripted confirmer with the given answers.
func NewScripted(answers ...bool) *Scripted {
	return &Scripted{answers: answers}
}

// Confirm implements Confirmer.
func (s *Scripted) Confirm(label string, _ bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Asked = append(s.Asked, label)
	if s.Err != nil {
		return false, s.Err
	}
	if len(s.answers) == 0 {
		return s.Default, nil
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

// Pause implements Confirmer.
func (s *Scripted) Pause(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pauses++
	return nil
}

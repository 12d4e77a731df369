package cookie

import "time"

func (j *Jar) SetClock(now func() time.Time) { j.now = now }

package domain

// Delivery summarizes one fan-out.
// Skipped counts recipients already closed, Failed those whose send errored.
type Delivery struct {
	Delivered int
	Skipped   int
	Failed    int
}

func (d Delivery) Recipients() int {
	return d.Delivered + d.Skipped + d.Failed
}

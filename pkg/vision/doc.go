// Package vision validates plate readings returned by the vision model and
// turns them into detection records.
//
// The model output is untrusted input. ParseResponse checks it against a
// fixed schema and Interpret cleans the plate text, checks it against the
// known plate formats and assigns a status:
//
//	resp, err := vision.ParseResponse(body)
//	if err != nil {
//		return err // *vision.SchemaError
//	}
//	for _, d := range vision.Interpret(resp) {
//		record := d.Record()
//		...
//	}
package vision

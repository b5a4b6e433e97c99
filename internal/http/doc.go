// Package http provides HTTP handlers and middleware for the Career Compass API.
//
// The router exposes the following endpoints:
//   - POST /api/rsvp: stores a webinar registration. Body: {"name","email","phone",
//     "branch","customBranch","questions","optIn","speakerName","sessionDate"}.
//     Response: 201 {"success":true,"id":N}. The body is checked against the
//     embedded schema/rsvp.schema.json before it reaches the service.
//     Malformed JSON, schema failures and field validation failures are client
//     errors and return 400 with an "errors" map where fields are known.
//     Storage failures return 500 with the same envelope.
//   - GET /api/test: health probe returning {"message":"Server is running correctly!"}.
//   - GET /api/speakers?category=Software: the speaker directory with the
//     session state ("upcoming", "joinable" or "past") and instant of each entry.
//   - GET /api/next: the next upcoming session and its countdown, or nulls.
//   - GET /api/calendar/series.ics, GET /api/calendar/{slug}.ics: iCalendar
//     documents for the whole series or a single speaker.
//
// Every failure is written as {"success":false,"error":msg} with an optional
// "errors" map of field messages. OPTIONS requests on any path are answered by
// the CORS middleware.
package http

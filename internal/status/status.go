// Package status defines the wire-protocol outcome codes attached to every
// response and the typed failures that map onto them.
package status

import "net/http"

// Code is a wire-protocol status code. The numeric values are fixed by the
// JSON wire protocol and must not be renumbered.
type Code int

const (
	Success                   Code = 0
	NoSuchDriver              Code = 6
	NoSuchElement             Code = 7
	NoSuchFrame               Code = 8
	UnknownCommand            Code = 9
	StaleElementReference     Code = 10
	ElementNotVisible         Code = 11
	InvalidElementState       Code = 12
	UnknownError              Code = 13
	ElementIsNotSelectable    Code = 15
	JavaScriptError           Code = 17
	XPathLookupError          Code = 19
	Timeout                   Code = 21
	NoSuchWindow              Code = 23
	InvalidCookieDomain       Code = 24
	UnableToSetCookie         Code = 25
	UnexpectedAlertOpen       Code = 26
	NoAlertOpenError          Code = 27
	ScriptTimeout             Code = 28
	InvalidElementCoordinates Code = 29
	IMENotAvailable           Code = 30
	IMEEngineActivationFailed Code = 31
	InvalidSelector           Code = 32
	SessionNotCreated         Code = 33
	MoveTargetOutOfBounds     Code = 34
	JSONDecoderError          Code = 35
)

var codeInfo = map[Code]struct {
	name    string
	message string
}{
	Success:                   {"Success", "The command executed successfully."},
	NoSuchDriver:              {"NoSuchDriver", "A session is either terminated or not started"},
	NoSuchElement:             {"NoSuchElement", "An element could not be located on the page using the given search parameters."},
	NoSuchFrame:               {"NoSuchFrame", "A request to switch to a frame could not be satisfied because the frame could not be found."},
	UnknownCommand:            {"UnknownCommand", "The requested resource could not be found, or a request was received using an HTTP method that is not supported by the mapped resource."},
	StaleElementReference:     {"StaleElementReference", "An element command failed because the referenced element is no longer attached to the DOM."},
	ElementNotVisible:         {"ElementNotVisible", "An element command could not be completed because the element is not visible on the page."},
	InvalidElementState:       {"InvalidElementState", "An element command could not be completed because the element is in an invalid state (e.g. attempting to click a disabled element)."},
	UnknownError:              {"UnknownError", "An unknown server-side error occurred while processing the command."},
	ElementIsNotSelectable:    {"ElementIsNotSelectable", "An attempt was made to select an element that cannot be selected."},
	JavaScriptError:           {"JavaScriptError", "An error occurred while executing user supplied JavaScript."},
	XPathLookupError:          {"XPathLookupError", "An error occurred while searching for an element by XPath."},
	Timeout:                   {"Timeout", "An operation did not complete before its timeout expired."},
	NoSuchWindow:              {"NoSuchWindow", "A request to switch to a different window could not be satisfied because the window could not be found."},
	InvalidCookieDomain:       {"InvalidCookieDomain", "An illegal attempt was made to set a cookie under a different domain than the current page."},
	UnableToSetCookie:         {"UnableToSetCookie", "A request to set a cookie's value could not be satisfied."},
	UnexpectedAlertOpen:       {"UnexpectedAlertOpen", "A modal dialog was open, blocking this operation"},
	NoAlertOpenError:          {"NoAlertOpenError", "An attempt was made to operate on a modal dialog when one was not open."},
	ScriptTimeout:             {"ScriptTimeout", "A script did not complete before its timeout expired."},
	InvalidElementCoordinates: {"InvalidElementCoordinates", "The coordinates provided to an interactions operation are invalid."},
	IMENotAvailable:           {"IMENotAvailable", "IME was not available."},
	IMEEngineActivationFailed: {"IMEEngineActivationFailed", "An IME engine could not be started."},
	InvalidSelector:           {"InvalidSelector", "Argument was an invalid selector (e.g. XPath/CSS)."},
	SessionNotCreated:         {"SessionNotCreatedException", "A new session could not be created."},
	MoveTargetOutOfBounds:     {"MoveTargetOutOfBounds", "Target provided for a move action is out of bounds."},
	JSONDecoderError:          {"JSONDecoderError", "Unable to decode the request body as JSON."},
}

// String returns the protocol name of the code.
func (c Code) String() string {
	if info, ok := codeInfo[c]; ok {
		return info.name
	}
	return "UnknownStatus"
}

// Message returns the default human-readable message for the code.
func (c Code) Message() string {
	if info, ok := codeInfo[c]; ok {
		return info.message
	}
	return codeInfo[UnknownError].message
}

// HTTPStatus returns the HTTP status used to carry a response with this code.
func (c Code) HTTPStatus() int {
	switch c {
	case Success:
		return http.StatusOK
	case UnknownCommand, NoSuchDriver:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

package jamf

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	inventoryPath   = "/api/v1/computers-inventory"
	mdmCommandsPath = "/api/v2/mdm/commands"

	commandDeviceLock = "DEVICE_LOCK"

	ClientTypeComputer     = "COMPUTER"
	ClientTypeMobileDevice = "MOBILE_DEVICE"
)

var validate = validator.New()

// LockRequest describes a DEVICE_LOCK command for one managed device.
type LockRequest struct {
	ManagementID string  `validate:"required"`
	PIN          string  `validate:"required,len=6,numeric"`
	Message      *string `validate:"omitempty,max=255"`
	ClientType   string  `validate:"omitempty,oneof=COMPUTER MOBILE_DEVICE"`
}

type lockCommand struct {
	CommandData lockCommandData `json:"commandData"`
	ClientData  []lockClient    `json:"clientData"`
}

type lockCommandData struct {
	CommandType string  `json:"commandType"`
	PIN         string  `json:"pin"`
	Message     *string `json:"message,omitempty"`
}

type lockClient struct {
	ManagementID string `json:"managementId"`
	ClientType   string `json:"clientType"`
}

// LockResult is what the server returned for an accepted command.
type LockResult struct {
	StatusCode int
	CommandIDs []string
}

// LookupManagementID resolves a computer serial number to the management id
// used by MDM commands.
func (c *Client) LookupManagementID(ctx context.Context, serial string) (string, error) {
	serial = strings.ToUpper(strings.TrimSpace(serial))
	if len(serial) == 0 {
		return "", fmt.Errorf("serial number is required")
	}

	req, err := c.authorized(ctx)
	if err != nil {
		return "", err
	}

	resp, err := req.
		SetHeader("Accept", mimeJSON).
		SetQueryParamsFromValues(url.Values{
			"section":   {"GENERAL", "HARDWARE"},
			"page":      {"0"},
			"page-size": {"1"},
			"filter":    {fmt.Sprintf(`hardware.serialNumber=="%s"`, serial)},
		}).
		Get(inventoryPath)
	if err != nil {
		return "", &FetchError{Path: inventoryPath, Err: err}
	}
	if !resp.IsSuccess() {
		return "", statusError(inventoryPath, resp.StatusCode(), resp.String())
	}

	managementID := gjson.GetBytes(resp.Body(), "results.0.general.managementId")
	if !managementID.Exists() || len(managementID.String()) == 0 {
		return "", fmt.Errorf("%w: %s", ErrDeviceNotFound, serial)
	}

	logrus.WithFields(logrus.Fields{
		"serial":       serial,
		"managementId": managementID.String(),
	}).Debugln("Resolved management id")

	return managementID.String(), nil
}

// SendDeviceLock issues a DEVICE_LOCK command. The server answers 201 or 202
// when the command is queued.
func (c *Client) SendDeviceLock(ctx context.Context, request LockRequest) (*LockResult, error) {
	if len(request.ClientType) == 0 {
		request.ClientType = ClientTypeComputer
	}
	if err := validate.Struct(request); err != nil {
		return nil, fmt.Errorf("invalid lock request: %w", err)
	}

	command := lockCommand{
		CommandData: lockCommandData{
			CommandType: commandDeviceLock,
			PIN:         request.PIN,
			Message:     request.Message,
		},
		ClientData: []lockClient{{
			ManagementID: request.ManagementID,
			ClientType:   request.ClientType,
		}},
	}

	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetHeader("Accept", mimeJSON).
		SetHeader("Content-Type", mimeJSON).
		SetBody(command).
		Post(mdmCommandsPath)
	if err != nil {
		return nil, &FetchError{Path: mdmCommandsPath, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, statusError(mdmCommandsPath, resp.StatusCode(), resp.String())
	}

	result := &LockResult{StatusCode: resp.StatusCode()}
	for _, id := range gjson.GetBytes(resp.Body(), "#.id").Array() {
		result.CommandIDs = append(result.CommandIDs, id.String())
	}

	logrus.WithFields(logrus.Fields{
		"managementId": request.ManagementID,
		"status":       resp.StatusCode(),
	}).Infoln("Device lock command accepted")

	return result, nil
}

func statusError(path string, status int, body string) error {
	fetchErr := &FetchError{
		Path:       path,
		StatusCode: status,
		Body:       truncateBody(body),
	}
	if status == http.StatusForbidden {
		fetchErr.Err = ErrInsufficientPrivileges
	}
	return fetchErr
}

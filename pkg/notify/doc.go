/*
Package notify routes live feed alerts to delivery channels by
priority.

Priorities 4 and 5 go to the critical channel, 3 to warnings, and
everything else to info; a separate service channel carries the agent's
own presence notices. Each routed alert is also recorded as a local
notification so the history survives restarts and shows up in the
dashboard's recent-alert list. Channel definitions can be overridden
from a YAML file, keyed by channel ID.

Delivery is pluggable through the Deliverer interface; the built-in
LogDeliverer writes alerts to the structured log, which is the right
sink for a headless agent.
*/
package notify
